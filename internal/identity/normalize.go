package identity

import (
	"regexp"
	"strings"

	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/pkg/logger"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	linkedInPattern = regexp.MustCompile(`(?i)linkedin\.com/in/([\w-]+)`)
)

// disposableDomains are matched as substrings of the email's domain.
var disposableDomains = []string{
	"mailinator.com",
	"tempmail.com",
	"throwawaymail.com",
	"guerrillamail.com",
}

var fakePrefixes = []string{"test@", "fake@", "example@", "user@"}

var personalDomains = map[string]bool{
	"gmail.com":   true,
	"outlook.com": true,
	"hotmail.com": true,
	"yahoo.com":   true,
}

var log = logger.Named("identity")

// ValidateEmailFormat reports whether s has a local@domain.tld shape.
func ValidateEmailFormat(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeAndFilter returns the trimmed, lower-cased email, or false when
// the address is malformed, disposable, or an obvious placeholder.
func NormalizeAndFilter(email string) (string, bool) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", false
	}
	if !ValidateEmailFormat(e) {
		log.Warn("rejected email: invalid format", "email", e)
		return "", false
	}

	dom := e[strings.LastIndex(e, "@")+1:]
	for _, d := range disposableDomains {
		if strings.Contains(dom, d) {
			log.Warn("rejected email: disposable domain", "email", e, "domain", dom)
			return "", false
		}
	}
	for _, p := range fakePrefixes {
		if strings.HasPrefix(e, p) {
			log.Warn("rejected email: placeholder address", "email", e)
			return "", false
		}
	}
	return e, true
}

// ExtractLinkedInHandle returns the profile slug after linkedin.com/in/, or
// url unchanged when it does not contain one.
func ExtractLinkedInHandle(url string) string {
	m := linkedInPattern.FindStringSubmatch(url)
	if m == nil {
		return url
	}
	return m[1]
}

// ClassifyDomain labels an email personal (consumer webmail) or business.
// An email with no domain segment yields "".
func ClassifyDomain(email string) domain.Quality {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	if personalDomains[strings.ToLower(strings.TrimSpace(email[at+1:]))] {
		return domain.QualityPersonal
	}
	return domain.QualityBusiness
}

// MissingFields returns the required fields that are blank on rec, in
// domain.RequiredFields order.
func MissingFields(rec domain.CandidateRecord) []string {
	var missing []string
	values := map[string]string{
		domain.FieldFirstName:   rec.FirstName,
		domain.FieldLastName:    rec.LastName,
		domain.FieldLinkedIn:    rec.LinkedIn,
		domain.FieldCompanyName: rec.CompanyName,
	}
	for _, f := range domain.RequiredFields {
		if strings.TrimSpace(values[f]) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
