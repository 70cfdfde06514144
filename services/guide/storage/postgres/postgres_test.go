// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

func TestNew_EmptyDSN(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestTranslateUnique(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "slug constraint",
			err:  &pq.Error{Code: pqUniqueViolation, Constraint: constraintRouteSlug},
			want: storage.ErrDuplicateSlug,
		},
		{
			name: "active run constraint",
			err:  &pq.Error{Code: pqUniqueViolation, Constraint: constraintActiveRun},
			want: storage.ErrDuplicateActiveRun,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateUnique(tt.err), tt.want)
		})
	}

	t.Run("other unique constraint passes through", func(t *testing.T) {
		err := &pq.Error{Code: pqUniqueViolation, Constraint: "version_checkpoints_seq_key"}
		assert.Equal(t, error(err), translateUnique(err))
	})

	t.Run("non-pq error passes through", func(t *testing.T) {
		err := errors.New("plain")
		assert.Equal(t, err, translateUnique(err))
	})
}

func TestJSONBStringMap_RoundTrip(t *testing.T) {
	m := jsonbStringMap{"en": "Bridge", "de": "Brücke"}

	val, err := m.Value()
	require.NoError(t, err)

	var out jsonbStringMap
	require.NoError(t, out.Scan(val))
	assert.Equal(t, m, out)
}

func TestJSONBStringMap_NilValue(t *testing.T) {
	var m jsonbStringMap
	val, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), val)
}

func TestJSONBBoolMap_ScanString(t *testing.T) {
	var m jsonbBoolMap
	require.NoError(t, m.Scan(`{"en": true, "de": false}`))
	assert.True(t, m["en"])
	assert.False(t, m["de"])
}

func TestJSONBStringSlice_RoundTrip(t *testing.T) {
	s := jsonbStringSlice{"en", "de"}

	val, err := s.Value()
	require.NoError(t, err)

	var out jsonbStringSlice
	require.NoError(t, out.Scan(val))
	assert.Equal(t, s, out)
}

func TestJSONBStringSlice_NilValue(t *testing.T) {
	var s jsonbStringSlice
	val, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), val)
}

func TestScanJSONB_NilSource(t *testing.T) {
	var m jsonbStringMap
	assert.NoError(t, m.Scan(nil))
	assert.Nil(t, m)
}

func TestScanJSONB_UnsupportedType(t *testing.T) {
	var m jsonbStringMap
	assert.Error(t, m.Scan(42))
}
