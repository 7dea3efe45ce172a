package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/pkg/logger"
)

// Feature path segments.
const (
	FeatureSingle = "find-email"
	FeatureBulk   = "bulk-find-email"
)

const listConcurrency = 8

// ErrInvalidID is returned for ids that could escape their directory.
var ErrInvalidID = errors.New("invalid result id")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// History stores and lists a user's single and bulk results.
type History struct {
	blob       BlobStore
	basePrefix string
	log        *logger.Logger
}

// NewHistory creates a History over blob. basePrefix is prepended to every
// key and should be "" or end with "/".
func NewHistory(blob BlobStore, basePrefix string) *History {
	return &History{blob: blob, basePrefix: basePrefix, log: logger.Named("history")}
}

// Prefix returns the listing prefix for one user's feature directory.
func (h *History) Prefix(identity, feature string) string {
	return h.basePrefix + "user-data/" + url.PathEscape(identity) + "/" + feature + "/"
}

// Key returns the object key of one result.
func (h *History) Key(identity, feature, id string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", ErrInvalidID
	}
	return h.Prefix(identity, feature) + id + ".json", nil
}

func (h *History) put(ctx context.Context, identity, feature, id string, v any) (string, error) {
	key, err := h.Key(identity, feature, id)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling result: %w", err)
	}
	if err := h.blob.Put(ctx, key, data, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

func (h *History) get(ctx context.Context, identity, feature, id string, v any) error {
	key, err := h.Key(identity, feature, id)
	if err != nil {
		return err
	}
	data, err := h.blob.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return nil
}

// SaveBulk persists a bulk request under its SearchID and returns the key.
func (h *History) SaveBulk(ctx context.Context, identity string, req *domain.BulkRequest) (string, error) {
	return h.put(ctx, identity, FeatureBulk, req.SearchID, req)
}

// GetBulk loads one bulk request.
func (h *History) GetBulk(ctx context.Context, identity, id string) (*domain.BulkRequest, error) {
	var req domain.BulkRequest
	if err := h.get(ctx, identity, FeatureBulk, id, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// SaveSingle persists a single search under its SearchID.
func (h *History) SaveSingle(ctx context.Context, identity string, res *domain.SingleSearchResult) (string, error) {
	return h.put(ctx, identity, FeatureSingle, res.SearchID, res)
}

// GetSingle loads one single search.
func (h *History) GetSingle(ctx context.Context, identity, id string) (*domain.SingleSearchResult, error) {
	var res domain.SingleSearchResult
	if err := h.get(ctx, identity, FeatureSingle, id, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// idFromKey returns the file stem of key.
func idFromKey(key string) string {
	return strings.TrimSuffix(path.Base(key), ".json")
}

// ListBulk returns summaries of a user's bulk requests, newest first. An
// object that cannot be read is listed with placeholder metadata.
func (h *History) ListBulk(ctx context.Context, identity string) ([]domain.BulkSummary, error) {
	objects, err := h.listJSON(ctx, h.Prefix(identity, FeatureBulk))
	if err != nil {
		return nil, err
	}

	out := make([]domain.BulkSummary, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, obj := range objects {
		g.Go(func() error {
			summary := domain.BulkSummary{
				Key:          obj.Key,
				SearchID:     idFromKey(obj.Key),
				FileName:     "Unknown file",
				LastModified: obj.LastModified,
			}
			var req domain.BulkRequest
			if data, err := h.blob.Get(gctx, obj.Key); err != nil {
				h.log.Warn("reading bulk result failed", "key", obj.Key, "error", err)
			} else if err := json.Unmarshal(data, &req); err != nil {
				h.log.Warn("decoding bulk result failed", "key", obj.Key, "error", err)
			} else {
				if req.SearchID != "" {
					summary.SearchID = req.SearchID
				}
				if req.FileName != "" {
					summary.FileName = req.FileName
				}
				summary.RecordCount = req.RecordCount
				summary.SuccessCount = req.SuccessCount
				if !req.Timestamp.IsZero() {
					ts := req.Timestamp
					summary.Timestamp = &ts
				}
			}
			out[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

// ListSingle returns summaries of a user's single searches, newest first.
func (h *History) ListSingle(ctx context.Context, identity string) ([]domain.SingleSummary, error) {
	objects, err := h.listJSON(ctx, h.Prefix(identity, FeatureSingle))
	if err != nil {
		return nil, err
	}

	out := make([]domain.SingleSummary, len(objects))
	keep := make([]bool, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, obj := range objects {
		g.Go(func() error {
			data, err := h.blob.Get(gctx, obj.Key)
			if err != nil {
				h.log.Warn("reading single result failed", "key", obj.Key, "error", err)
				return nil
			}
			var res domain.SingleSearchResult
			if err := json.Unmarshal(data, &res); err != nil {
				h.log.Warn("decoding single result failed", "key", obj.Key, "error", err)
				return nil
			}
			s := domain.SingleSummary{
				Key:            obj.Key,
				LastModified:   obj.LastModified,
				SearchID:       res.SearchID,
				FirstName:      res.FirstName,
				LastName:       res.LastName,
				CompanyName:    res.CompanyName,
				LinkedIn:       res.LinkedIn,
				Email:          res.Email,
				PersonalEmails: res.PersonalEmails,
			}
			if s.SearchID == "" {
				s.SearchID = idFromKey(obj.Key)
			}
			if s.PersonalEmails == nil {
				s.PersonalEmails = []string{}
			}
			if !res.Timestamp.IsZero() {
				ts := res.Timestamp
				s.Timestamp = &ts
			}
			out[i] = s
			keep[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]domain.SingleSummary, 0, len(out))
	for i, s := range out {
		if keep[i] {
			result = append(result, s)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].LastModified.After(result[j].LastModified) })
	return result, nil
}

func (h *History) listJSON(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := h.blob.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := objects[:0]
	for _, o := range objects {
		if strings.HasSuffix(o.Key, ".json") {
			out = append(out, o)
		}
	}
	return out, nil
}
