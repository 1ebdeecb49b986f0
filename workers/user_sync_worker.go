// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"agent-grid-rewards/logging"
	"agent-grid-rewards/services"
)

type syncedProfile struct {
	services.ProfileUpdate
	UpdatedAt time.Time `json:"updated_at"`
}

// profileChangesResponse is the top-level structure of the sync service response.
type profileChangesResponse struct {
	Users []syncedProfile `json:"users"`
}

// ProfileSyncWorker pulls profile changes from the identity sync service and
// refreshes display columns of known users.
type ProfileSyncWorker struct {
	users        *services.UserService
	endpoint     string
	serviceToken string
	httpClient   *http.Client
	log          logging.Logger

	since time.Time
}

func NewProfileSyncWorker(users *services.UserService, endpoint, serviceToken string, httpClient *http.Client, log logging.Logger) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		users:        users,
		endpoint:     endpoint,
		serviceToken: serviceToken,
		httpClient:   httpClient,
		log:          log,
	}
}

func (w *ProfileSyncWorker) Name() string { return "profile_sync" }

func (w *ProfileSyncWorker) Run(ctx context.Context) error {
	changes, err := w.fetch(ctx, w.since)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	updates := make([]services.ProfileUpdate, 0, len(changes))
	latest := w.since
	for _, ch := range changes {
		updates = append(updates, ch.ProfileUpdate)
		if ch.UpdatedAt.After(latest) {
			latest = ch.UpdatedAt
		}
	}

	changed, err := w.users.SyncProfiles(ctx, updates)
	if err != nil {
		return err
	}
	w.since = latest
	w.log.Info("profiles synced", "received", len(changes), "changed", changed, "since", latest.Format(time.RFC3339))
	return nil
}

func (w *ProfileSyncWorker) fetch(ctx context.Context, since time.Time) ([]syncedProfile, error) {
	u, err := url.Parse(w.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid profile sync URL %q: %w", w.endpoint, err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile sync request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile sync service returned %d: %s", resp.StatusCode, string(body))
	}

	var out profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode profile sync response: %w", err)
	}
	return out.Users, nil
}
