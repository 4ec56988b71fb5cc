// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
)

// Key prefixes for record types.
const (
	prefixCHW     = "chw:"
	prefixPatient = "pat:"
	prefixVisit   = "vis:"
	prefixUser    = "usr:"
	prefixSeq     = "seq:"
)

// Store is the repository for all CHW monitor records.
//
// Thread Safety: all methods are safe for concurrent use. Compound
// operations (e.g. Get then Put) are not atomic across calls; callers
// needing atomicity should do the read and write inside a single request
// handler, which is sufficient for this service's consistency needs.
type Store struct {
	db *badger.DB
}

// Close releases the underlying database. The store is unusable afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsEmpty reports whether the store contains no domain records.
// The seeder uses this as its idempotency guard.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	empty := true
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if !strings.HasPrefix(key, prefixSeq) {
				empty = false
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("scanning store: %w", err)
	}
	return empty, nil
}

// NextID allocates the next ID for kind ("chw", "pat", "vis") using the
// given format string, e.g. NextID(ctx, "chw", "CHW%03d") -> "CHW001".
// Counters are persisted so IDs remain unique across restarts and deletes.
func (s *Store) NextID(ctx context.Context, kind, format string) (string, error) {
	var next uint64
	key := []byte(prefixSeq + kind)
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			next = 1
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				next = binary.BigEndian.Uint64(val) + 1
				return nil
			}); err != nil {
				return err
			}
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, next)
		return txn.Set(key, buf)
	})
	if err != nil {
		return "", fmt.Errorf("allocating %s id: %w", kind, err)
	}
	return fmt.Sprintf(format, next), nil
}

// put JSON-encodes v and stores it under key.
func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	}); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// get loads the record at key into v. Returns ErrNotFound if absent.
func (s *Store) get(key string, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

// delete removes the record at key. Returns ErrNotFound if absent.
func (s *Store) delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// scan iterates all records under prefix, decoding each value into a fresh
// T and appending it to the result.
func scan[T any](s *Store, prefix string) ([]T, error) {
	var out []T
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var record T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", prefix, err)
	}
	return out, nil
}

// =============================================================================
// Community Health Workers
// =============================================================================

// PutCHW stores a CHW, assigning an ID of the form CHW001 if unset.
func (s *Store) PutCHW(ctx context.Context, chw *datatypes.CommunityHealthWorker) error {
	if chw.ID == "" {
		id, err := s.NextID(ctx, "chw", "CHW%03d")
		if err != nil {
			return err
		}
		chw.ID = id
	}
	return s.put(prefixCHW+chw.ID, chw)
}

// GetCHW returns the CHW with the given ID, or ErrNotFound.
func (s *Store) GetCHW(ctx context.Context, id string) (*datatypes.CommunityHealthWorker, error) {
	var chw datatypes.CommunityHealthWorker
	if err := s.get(prefixCHW+id, &chw); err != nil {
		return nil, err
	}
	return &chw, nil
}

// DeleteCHW removes the CHW with the given ID.
func (s *Store) DeleteCHW(ctx context.Context, id string) error {
	return s.delete(prefixCHW + id)
}

// ListCHWs returns all CHWs in key order.
func (s *Store) ListCHWs(ctx context.Context) ([]datatypes.CommunityHealthWorker, error) {
	return scan[datatypes.CommunityHealthWorker](s, prefixCHW)
}

// =============================================================================
// Patients
// =============================================================================

// PutPatient stores a patient, assigning an ID of the form PAT0001 if unset.
func (s *Store) PutPatient(ctx context.Context, p *datatypes.Patient) error {
	if p.ID == "" {
		id, err := s.NextID(ctx, "pat", "PAT%04d")
		if err != nil {
			return err
		}
		p.ID = id
	}
	return s.put(prefixPatient+p.ID, p)
}

// GetPatient returns the patient with the given ID, or ErrNotFound.
func (s *Store) GetPatient(ctx context.Context, id string) (*datatypes.Patient, error) {
	var p datatypes.Patient
	if err := s.get(prefixPatient+id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePatient removes the patient with the given ID.
func (s *Store) DeletePatient(ctx context.Context, id string) error {
	return s.delete(prefixPatient + id)
}

// ListPatients returns all patients in key order.
func (s *Store) ListPatients(ctx context.Context) ([]datatypes.Patient, error) {
	return scan[datatypes.Patient](s, prefixPatient)
}

// =============================================================================
// Health Visits
// =============================================================================

// PutVisit stores a visit, assigning an ID of the form VIS00001 if unset.
func (s *Store) PutVisit(ctx context.Context, v *datatypes.HealthVisit) error {
	if v.ID == "" {
		id, err := s.NextID(ctx, "vis", "VIS%05d")
		if err != nil {
			return err
		}
		v.ID = id
	}
	return s.put(prefixVisit+v.ID, v)
}

// GetVisit returns the visit with the given ID, or ErrNotFound.
func (s *Store) GetVisit(ctx context.Context, id string) (*datatypes.HealthVisit, error) {
	var v datatypes.HealthVisit
	if err := s.get(prefixVisit+id, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVisits returns all visits in key order.
func (s *Store) ListVisits(ctx context.Context) ([]datatypes.HealthVisit, error) {
	return scan[datatypes.HealthVisit](s, prefixVisit)
}

// =============================================================================
// Users
// =============================================================================

func userKey(email string) string {
	return prefixUser + strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user keyed by email.
// Returns ErrDuplicateEmail if the email is taken.
func (s *Store) CreateUser(ctx context.Context, u *datatypes.User) error {
	key := userKey(u.Email)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return txn.Set([]byte(key), data)
	})
	if errors.Is(err, ErrDuplicateEmail) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user with the given email, or ErrNotFound.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*datatypes.User, error) {
	var u datatypes.User
	if err := s.get(userKey(email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser persists changes to a user. When the email changed, the record
// is re-keyed: the old key is deleted and the new key must be free.
func (s *Store) UpdateUser(ctx context.Context, oldEmail string, u *datatypes.User) error {
	oldKey := userKey(oldEmail)
	newKey := userKey(u.Email)
	err := s.db.Update(func(txn *badger.Txn) error {
		if newKey != oldKey {
			if _, err := txn.Get([]byte(newKey)); err == nil {
				return ErrDuplicateEmail
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete([]byte(oldKey)); err != nil {
				return err
			}
		}
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return txn.Set([]byte(newKey), data)
	})
	if errors.Is(err, ErrDuplicateEmail) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// GetUserByResetToken returns the user holding the given password reset
// token, or ErrNotFound. The user population is small (dashboard operators),
// so a prefix scan is adequate.
func (s *Store) GetUserByResetToken(ctx context.Context, token string) (*datatypes.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	users, err := scan[datatypes.User](s, prefixUser)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ResetToken == token {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}
