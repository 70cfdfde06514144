// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memory provides an in-memory storage.Store for tests and
// local development.
//
// The implementation serializes every operation behind a single mutex,
// which also gives WithTx its isolation: a transaction holds the lock
// for its whole body and restores a snapshot on error. Row locks
// (ForUpdate) are therefore no-ops here. All reads and writes deep-copy
// records so callers never alias store-owned state.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

type progressKey struct {
	userID       string
	checkpointID uuid.UUID
}

// Store is the in-memory storage backend.
type Store struct {
	mu sync.Mutex

	routes    map[uuid.UUID]*datatypes.Route
	slugs     map[string]uuid.UUID
	versions  map[uuid.UUID]*datatypes.Version
	waypoints map[uuid.UUID]*datatypes.Waypoint
	runs      map[uuid.UUID]*datatypes.Run
	progress  map[progressKey]*datatypes.ProgressRecord
}

// compile-time interface check
var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		routes:    make(map[uuid.UUID]*datatypes.Route),
		slugs:     make(map[string]uuid.UUID),
		versions:  make(map[uuid.UUID]*datatypes.Version),
		waypoints: make(map[uuid.UUID]*datatypes.Waypoint),
		runs:      make(map[uuid.UUID]*datatypes.Run),
		progress:  make(map[progressKey]*datatypes.ProgressRecord),
	}
}

// Close releases nothing; it exists to satisfy storage.Store.
func (s *Store) Close() error {
	return nil
}

// WithTx runs fn while holding the store lock, restoring a snapshot of
// all state when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(&txView{s: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

// snapshot deep-copies the full store state for rollback.
func (s *Store) snapshot() *Store {
	snap := New()
	for id, r := range s.routes {
		snap.routes[id] = copyRoute(r)
	}
	for slug, id := range s.slugs {
		snap.slugs[slug] = id
	}
	for id, v := range s.versions {
		snap.versions[id] = copyVersion(v)
	}
	for id, w := range s.waypoints {
		snap.waypoints[id] = copyWaypoint(w)
	}
	for id, r := range s.runs {
		snap.runs[id] = copyRun(r)
	}
	for k, p := range s.progress {
		snap.progress[k] = copyProgress(p)
	}
	return snap
}

func (s *Store) restore(snap *Store) {
	s.routes = snap.routes
	s.slugs = snap.slugs
	s.versions = snap.versions
	s.waypoints = snap.waypoints
	s.runs = snap.runs
	s.progress = snap.progress
}

// txView forwards to the store without re-locking. It exists only
// inside WithTx, where the store lock is already held.
type txView struct {
	s *Store
}

var _ storage.Store = (*txView)(nil)

// WithTx inside a transaction reuses the current transaction.
func (t *txView) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	return fn(t)
}

func (t *txView) Close() error { return nil }

// =============================================================================
// Routes
// =============================================================================

func (s *Store) CreateRoute(ctx context.Context, route *datatypes.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRoute(route)
}

func (t *txView) CreateRoute(ctx context.Context, route *datatypes.Route) error {
	return t.s.createRoute(route)
}

func (s *Store) createRoute(route *datatypes.Route) error {
	if _, taken := s.slugs[route.Slug]; taken {
		return storage.ErrDuplicateSlug
	}
	s.routes[route.ID] = copyRoute(route)
	s.slugs[route.Slug] = route.ID
	return nil
}

func (s *Store) GetRoute(ctx context.Context, id uuid.UUID) (*datatypes.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRoute(id)
}

func (t *txView) GetRoute(ctx context.Context, id uuid.UUID) (*datatypes.Route, error) {
	return t.s.getRoute(id)
}

func (s *Store) getRoute(id uuid.UUID) (*datatypes.Route, error) {
	route, ok := s.routes[id]
	if !ok {
		return nil, storage.ErrRouteNotFound
	}
	return copyRoute(route), nil
}

func (s *Store) GetRouteForUpdate(ctx context.Context, id uuid.UUID) (*datatypes.Route, error) {
	return s.GetRoute(ctx, id)
}

func (t *txView) GetRouteForUpdate(ctx context.Context, id uuid.UUID) (*datatypes.Route, error) {
	return t.s.getRoute(id)
}

func (s *Store) GetRouteBySlug(ctx context.Context, slug string) (*datatypes.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRouteBySlug(slug)
}

func (t *txView) GetRouteBySlug(ctx context.Context, slug string) (*datatypes.Route, error) {
	return t.s.getRouteBySlug(slug)
}

func (s *Store) getRouteBySlug(slug string) (*datatypes.Route, error) {
	id, ok := s.slugs[slug]
	if !ok {
		return nil, storage.ErrRouteNotFound
	}
	return s.getRoute(id)
}

func (s *Store) ListRoutes(ctx context.Context, filter storage.RouteFilter) ([]*datatypes.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRoutes(filter)
}

func (t *txView) ListRoutes(ctx context.Context, filter storage.RouteFilter) ([]*datatypes.Route, error) {
	return t.s.listRoutes(filter)
}

func (s *Store) listRoutes(filter storage.RouteFilter) ([]*datatypes.Route, error) {
	var out []*datatypes.Route
	for _, route := range s.routes {
		if route.Status == datatypes.RouteStatusArchived && !filter.IncludeArchived {
			continue
		}
		if filter.Status != "" && route.Status != filter.Status {
			continue
		}
		if filter.CityID != 0 && route.CityID != filter.CityID {
			continue
		}
		if filter.CreatedBy != "" && route.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, copyRoute(route))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateRoute(ctx context.Context, route *datatypes.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateRoute(route)
}

func (t *txView) UpdateRoute(ctx context.Context, route *datatypes.Route) error {
	return t.s.updateRoute(route)
}

func (s *Store) updateRoute(route *datatypes.Route) error {
	prev, ok := s.routes[route.ID]
	if !ok {
		return storage.ErrRouteNotFound
	}
	if prev.Slug != route.Slug {
		if _, taken := s.slugs[route.Slug]; taken {
			return storage.ErrDuplicateSlug
		}
		delete(s.slugs, prev.Slug)
		s.slugs[route.Slug] = route.ID
	}
	s.routes[route.ID] = copyRoute(route)
	return nil
}

// =============================================================================
// Versions
// =============================================================================

func (s *Store) CreateVersion(ctx context.Context, version *datatypes.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createVersion(version)
}

func (t *txView) CreateVersion(ctx context.Context, version *datatypes.Version) error {
	return t.s.createVersion(version)
}

func (s *Store) createVersion(version *datatypes.Version) error {
	s.versions[version.ID] = copyVersion(version)
	return nil
}

func (s *Store) GetVersion(ctx context.Context, id uuid.UUID) (*datatypes.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getVersion(id)
}

func (t *txView) GetVersion(ctx context.Context, id uuid.UUID) (*datatypes.Version, error) {
	return t.s.getVersion(id)
}

func (s *Store) getVersion(id uuid.UUID) (*datatypes.Version, error) {
	version, ok := s.versions[id]
	if !ok {
		return nil, storage.ErrVersionNotFound
	}
	return copyVersion(version), nil
}

func (s *Store) ListVersionsByRoute(ctx context.Context, routeID uuid.UUID) ([]*datatypes.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listVersionsByRoute(routeID)
}

func (t *txView) ListVersionsByRoute(ctx context.Context, routeID uuid.UUID) ([]*datatypes.Version, error) {
	return t.s.listVersionsByRoute(routeID)
}

func (s *Store) listVersionsByRoute(routeID uuid.UUID) ([]*datatypes.Version, error) {
	var out []*datatypes.Version
	for _, version := range s.versions {
		if version.RouteID == routeID {
			out = append(out, copyVersion(version))
		}
	}
	// Numbered versions descending, unnumbered drafts last.
	sort.Slice(out, func(i, j int) bool {
		if (out[i].VersionNo == 0) != (out[j].VersionNo == 0) {
			return out[j].VersionNo == 0
		}
		return out[i].VersionNo > out[j].VersionNo
	})
	return out, nil
}

func (s *Store) UpdateVersion(ctx context.Context, version *datatypes.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateVersion(version)
}

func (t *txView) UpdateVersion(ctx context.Context, version *datatypes.Version) error {
	return t.s.updateVersion(version)
}

func (s *Store) updateVersion(version *datatypes.Version) error {
	if _, ok := s.versions[version.ID]; !ok {
		return storage.ErrVersionNotFound
	}
	s.versions[version.ID] = copyVersion(version)
	return nil
}

// =============================================================================
// Waypoints
// =============================================================================

func (s *Store) CreateWaypoint(ctx context.Context, wp *datatypes.Waypoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createWaypoint(wp)
}

func (t *txView) CreateWaypoint(ctx context.Context, wp *datatypes.Waypoint) error {
	return t.s.createWaypoint(wp)
}

func (s *Store) createWaypoint(wp *datatypes.Waypoint) error {
	s.waypoints[wp.ID] = copyWaypoint(wp)
	return nil
}

func (s *Store) GetWaypoint(ctx context.Context, id uuid.UUID) (*datatypes.Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getWaypoint(id)
}

func (t *txView) GetWaypoint(ctx context.Context, id uuid.UUID) (*datatypes.Waypoint, error) {
	return t.s.getWaypoint(id)
}

func (s *Store) getWaypoint(id uuid.UUID) (*datatypes.Waypoint, error) {
	wp, ok := s.waypoints[id]
	if !ok {
		return nil, storage.ErrWaypointNotFound
	}
	return copyWaypoint(wp), nil
}

func (s *Store) GetWaypoints(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*datatypes.Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getWaypoints(ids)
}

func (t *txView) GetWaypoints(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*datatypes.Waypoint, error) {
	return t.s.getWaypoints(ids)
}

func (s *Store) getWaypoints(ids []uuid.UUID) (map[uuid.UUID]*datatypes.Waypoint, error) {
	out := make(map[uuid.UUID]*datatypes.Waypoint, len(ids))
	for _, id := range ids {
		if wp, ok := s.waypoints[id]; ok {
			out[id] = copyWaypoint(wp)
		}
	}
	return out, nil
}

func (s *Store) UpdateWaypoint(ctx context.Context, wp *datatypes.Waypoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateWaypoint(wp)
}

func (t *txView) UpdateWaypoint(ctx context.Context, wp *datatypes.Waypoint) error {
	return t.s.updateWaypoint(wp)
}

func (s *Store) updateWaypoint(wp *datatypes.Waypoint) error {
	if _, ok := s.waypoints[wp.ID]; !ok {
		return storage.ErrWaypointNotFound
	}
	s.waypoints[wp.ID] = copyWaypoint(wp)
	return nil
}

// =============================================================================
// Runs
// =============================================================================

func (s *Store) CreateRun(ctx context.Context, run *datatypes.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRun(run)
}

func (t *txView) CreateRun(ctx context.Context, run *datatypes.Run) error {
	return t.s.createRun(run)
}

func (s *Store) createRun(run *datatypes.Run) error {
	if run.Active() {
		for _, existing := range s.runs {
			if existing.UserID == run.UserID && existing.RouteID == run.RouteID && existing.Active() {
				return storage.ErrDuplicateActiveRun
			}
		}
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*datatypes.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRun(id)
}

func (t *txView) GetRun(ctx context.Context, id uuid.UUID) (*datatypes.Run, error) {
	return t.s.getRun(id)
}

func (s *Store) getRun(id uuid.UUID) (*datatypes.Run, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, storage.ErrRunNotFound
	}
	return copyRun(run), nil
}

func (s *Store) GetActiveRun(ctx context.Context, userID string, routeID uuid.UUID) (*datatypes.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getActiveRun(userID, routeID)
}

func (t *txView) GetActiveRun(ctx context.Context, userID string, routeID uuid.UUID) (*datatypes.Run, error) {
	return t.s.getActiveRun(userID, routeID)
}

func (s *Store) getActiveRun(userID string, routeID uuid.UUID) (*datatypes.Run, error) {
	for _, run := range s.runs {
		if run.UserID == userID && run.RouteID == routeID && run.Active() {
			return copyRun(run), nil
		}
	}
	return nil, storage.ErrRunNotFound
}

func (s *Store) UpdateRun(ctx context.Context, run *datatypes.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateRun(run)
}

func (t *txView) UpdateRun(ctx context.Context, run *datatypes.Run) error {
	return t.s.updateRun(run)
}

func (s *Store) updateRun(run *datatypes.Run) error {
	if _, ok := s.runs[run.ID]; !ok {
		return storage.ErrRunNotFound
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *Store) ListRunsByUser(ctx context.Context, userID string) ([]*datatypes.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRunsByUser(userID)
}

func (t *txView) ListRunsByUser(ctx context.Context, userID string) ([]*datatypes.Run, error) {
	return t.s.listRunsByUser(userID)
}

func (s *Store) listRunsByUser(userID string) ([]*datatypes.Run, error) {
	var out []*datatypes.Run
	for _, run := range s.runs {
		if run.UserID == userID {
			out = append(out, copyRun(run))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (s *Store) CountActiveRunsByVersion(ctx context.Context, versionID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countActiveRunsByVersion(versionID)
}

func (t *txView) CountActiveRunsByVersion(ctx context.Context, versionID uuid.UUID) (int, error) {
	return t.s.countActiveRunsByVersion(versionID)
}

func (s *Store) countActiveRunsByVersion(versionID uuid.UUID) (int, error) {
	count := 0
	for _, run := range s.runs {
		if run.LockedVersionID == versionID && run.Active() && !run.IsSimulation {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// Progress
// =============================================================================

func (s *Store) GetProgress(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProgress(userID, checkpointID)
}

func (t *txView) GetProgress(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error) {
	return t.s.getProgress(userID, checkpointID)
}

func (s *Store) getProgress(userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error) {
	rec, ok := s.progress[progressKey{userID, checkpointID}]
	if !ok {
		return nil, storage.ErrProgressNotFound
	}
	return copyProgress(rec), nil
}

func (s *Store) GetProgressForUpdate(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error) {
	return s.GetProgress(ctx, userID, checkpointID)
}

func (t *txView) GetProgressForUpdate(ctx context.Context, userID string, checkpointID uuid.UUID) (*datatypes.ProgressRecord, error) {
	return t.s.getProgress(userID, checkpointID)
}

func (s *Store) ListProgress(ctx context.Context, userID string, checkpointIDs []uuid.UUID) (map[uuid.UUID]*datatypes.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listProgress(userID, checkpointIDs)
}

func (t *txView) ListProgress(ctx context.Context, userID string, checkpointIDs []uuid.UUID) (map[uuid.UUID]*datatypes.ProgressRecord, error) {
	return t.s.listProgress(userID, checkpointIDs)
}

func (s *Store) listProgress(userID string, checkpointIDs []uuid.UUID) (map[uuid.UUID]*datatypes.ProgressRecord, error) {
	out := make(map[uuid.UUID]*datatypes.ProgressRecord)
	for _, id := range checkpointIDs {
		if rec, ok := s.progress[progressKey{userID, id}]; ok {
			out[id] = copyProgress(rec)
		}
	}
	return out, nil
}

func (s *Store) UpsertProgress(ctx context.Context, rec *datatypes.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertProgress(rec)
}

func (t *txView) UpsertProgress(ctx context.Context, rec *datatypes.ProgressRecord) error {
	return t.s.upsertProgress(rec)
}

func (s *Store) upsertProgress(rec *datatypes.ProgressRecord) error {
	s.progress[progressKey{rec.UserID, rec.CheckpointID}] = copyProgress(rec)
	return nil
}

// =============================================================================
// Deep Copies
// =============================================================================

func copyRoute(r *datatypes.Route) *datatypes.Route {
	c := *r
	if r.PublishedVersionID != nil {
		id := *r.PublishedVersionID
		c.PublishedVersionID = &id
	}
	return &c
}

func copyVersion(v *datatypes.Version) *datatypes.Version {
	c := *v
	c.Checkpoints = make([]datatypes.CheckpointRef, len(v.Checkpoints))
	copy(c.Checkpoints, v.Checkpoints)
	c.Languages = make(map[string]bool, len(v.Languages))
	for lang, ready := range v.Languages {
		c.Languages[lang] = ready
	}
	c.AvailableLanguages = append([]string(nil), v.AvailableLanguages...)
	if v.PublishedAt != nil {
		at := *v.PublishedAt
		c.PublishedAt = &at
	}
	return &c
}

func copyWaypoint(w *datatypes.Waypoint) *datatypes.Waypoint {
	c := *w
	c.TitleI18n = copyStringMap(w.TitleI18n)
	c.DescriptionI18n = copyStringMap(w.DescriptionI18n)
	c.AudioI18n = copyStringMap(w.AudioI18n)
	return &c
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func copyRun(r *datatypes.Run) *datatypes.Run {
	c := *r
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		c.CompletedAt = &at
	}
	if r.CompletionType != nil {
		ct := *r.CompletionType
		c.CompletionType = &ct
	}
	if r.AbandonedAt != nil {
		at := *r.AbandonedAt
		c.AbandonedAt = &at
	}
	return &c
}

func copyProgress(p *datatypes.ProgressRecord) *datatypes.ProgressRecord {
	c := *p
	if p.VisitedAt != nil {
		at := *p.VisitedAt
		c.VisitedAt = &at
	}
	if p.AudioStartedAt != nil {
		at := *p.AudioStartedAt
		c.AudioStartedAt = &at
	}
	if p.AudioCompletedAt != nil {
		at := *p.AudioCompletedAt
		c.AudioCompletedAt = &at
	}
	return &c
}
