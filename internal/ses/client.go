// Package ses requests email verification through Amazon SES.
//
// SES verification is asynchronous: CreateEmailIdentity sends the
// recipient a confirmation link and returns. A nil error therefore means
// "verification initiated", not "address confirmed".
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// API is the subset of the SES v2 client used by Verifier.
type API interface {
	CreateEmailIdentity(ctx context.Context, params *sesv2.CreateEmailIdentityInput, optFns ...func(*sesv2.Options)) (*sesv2.CreateEmailIdentityOutput, error)
	GetEmailIdentity(ctx context.Context, params *sesv2.GetEmailIdentityInput, optFns ...func(*sesv2.Options)) (*sesv2.GetEmailIdentityOutput, error)
}

// Verifier requests verification of individual addresses.
type Verifier struct {
	api API
}

// NewVerifier creates a Verifier from an SDK config.
func NewVerifier(awsCfg aws.Config) *Verifier {
	return &Verifier{api: sesv2.NewFromConfig(awsCfg)}
}

// NewVerifierWithAPI creates a Verifier over an existing API implementation.
func NewVerifierWithAPI(api API) *Verifier {
	return &Verifier{api: api}
}

// Name identifies the provider in logs.
func (v *Verifier) Name() string { return "ses" }

// RequestVerification starts verification of email. An address that is
// already a known identity counts as accepted.
func (v *Verifier) RequestVerification(ctx context.Context, email string) error {
	_, err := v.api.CreateEmailIdentity(ctx, &sesv2.CreateEmailIdentityInput{
		EmailIdentity: aws.String(email),
	})
	if err == nil {
		return nil
	}
	var exists *types.AlreadyExistsException
	if errors.As(err, &exists) {
		return nil
	}
	return fmt.Errorf("ses create email identity: %w", err)
}

// IdentityStatus reports whether email has completed verification. An
// unknown identity is reported as not verified.
func (v *Verifier) IdentityStatus(ctx context.Context, email string) (bool, error) {
	out, err := v.api.GetEmailIdentity(ctx, &sesv2.GetEmailIdentityInput{
		EmailIdentity: aws.String(email),
	})
	if err != nil {
		var nf *types.NotFoundException
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("ses get email identity: %w", err)
	}
	return out.VerifiedForSendingStatus || out.VerificationStatus == types.VerificationStatusSuccess, nil
}
