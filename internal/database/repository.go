package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/visionauth/internal/auth"
	"github.com/kozaktomas/visionauth/internal/constants"
)

// ProfileRepository stores the enrolled profile and the attempt log as JSON documents.
type ProfileRepository struct {
	kv KeyValueStore
}

// NewProfileRepository creates a repository over kv.
func NewProfileRepository(kv KeyValueStore) *ProfileRepository {
	return &ProfileRepository{kv: kv}
}

// LoadProfile returns the stored profile, or nil if none is enrolled.
func (r *ProfileRepository) LoadProfile(ctx context.Context) (*auth.UserProfile, error) {
	var profile auth.UserProfile
	found, err := r.load(ctx, constants.ProfileKey, &profile)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

// SaveProfile overwrites the stored profile.
func (r *ProfileRepository) SaveProfile(ctx context.Context, profile *auth.UserProfile) error {
	return r.save(ctx, constants.ProfileKey, profile)
}

// DeleteProfile removes the stored profile. Deleting a missing profile is not an error.
func (r *ProfileRepository) DeleteProfile(ctx context.Context) error {
	if err := r.kv.Delete(ctx, constants.ProfileKey); err != nil {
		return fmt.Errorf("delete %s: %w", constants.ProfileKey, err)
	}
	return nil
}

// LoadLogs returns the stored attempt log, most recent first.
func (r *ProfileRepository) LoadLogs(ctx context.Context) ([]auth.LogEntry, error) {
	var logs []auth.LogEntry
	if _, err := r.load(ctx, constants.LogsKey, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// SaveLogs overwrites the stored attempt log.
func (r *ProfileRepository) SaveLogs(ctx context.Context, logs []auth.LogEntry) error {
	if logs == nil {
		logs = []auth.LogEntry{}
	}
	return r.save(ctx, constants.LogsKey, logs)
}

func (r *ProfileRepository) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *ProfileRepository) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
