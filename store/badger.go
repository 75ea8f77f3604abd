// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/DataDog/netmet-geoloc/log"
)

// BadgerStore keeps datasets in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// badgerLogger routes badger messages to the package logger, one level down
// so that compaction chatter stays out of info output.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	_ = log.Errorf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	_ = log.Warnf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debugf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Tracef("badger: "+format, args...)
}

// OpenBadgerStore opens or creates the database in dir. With inMemory the
// directory is ignored and nothing is written to disk.
func OpenBadgerStore(dir string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{})
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func getValue(txn *badger.Txn, name string) ([]byte, error) {
	item, err := txn.Get([]byte(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (s *BadgerStore) Save(_ context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", name, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("save dataset %s: %w", name, err)
	}
	return nil
}

func (s *BadgerStore) Load(_ context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		data, err = getValue(txn, name)
		return err
	})
	if err != nil {
		return err
	}
	return decode(name, data, v)
}

// Append rewrites the JSON array in a single transaction; concurrent
// appends conflict and are retried.
func (s *BadgerStore) Append(ctx context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			existing, err := getValue(txn, name)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			data, err := appendJSON(existing, v)
			if err != nil {
				return err
			}
			return txn.Set([]byte(name), data)
		})
		if errors.Is(err, badger.ErrConflict) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("append to dataset %s: %w", name, err)
		}
		return nil
	}
}

func (s *BadgerStore) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(name))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
