// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services implements the versioning and progress reconciliation
// engine: route lifecycle, draft/publish versioning with the structural
// change gate, language readiness, runs, and the monotonic progress
// merge. Every mutating operation runs in one store transaction.
package services

import (
	"time"

	"github.com/AleutianAI/AleutianTours/pkg/extensions"
	"github.com/AleutianAI/AleutianTours/pkg/logging"
	"github.com/AleutianAI/AleutianTours/services/guide/datatypes"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// Services bundles the engine's services over one store for wiring into
// handlers.
type Services struct {
	Routes    *RouteService
	Pool      *PoolService
	Versions  *VersionService
	Gate      *Gate
	Languages *LanguageService
	Runs      *RunService
	Progress  *ProgressService
}

// New wires all services over the given store.
func New(store storage.Store, logger *logging.Logger) *Services {
	if logger == nil {
		logger = logging.Default()
	}
	runs := NewRunService(store, logger)
	return &Services{
		Routes:    NewRouteService(store, logger),
		Pool:      NewPoolService(store, logger),
		Versions:  NewVersionService(store, logger),
		Gate:      NewGate(store, logger),
		Languages: NewLanguageService(store, logger),
		Runs:      runs,
		Progress:  NewProgressService(store, logger, runs),
	}
}

// canEditRoute reports whether the actor may mutate the route: admins
// always, editors only for routes they created.
func canEditRoute(actor *extensions.AuthInfo, route *datatypes.Route) bool {
	if actor.IsAdmin() {
		return true
	}
	return route.OwnedBy(actor.UserID)
}

// nowUTC is the single clock for the package, swappable in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
