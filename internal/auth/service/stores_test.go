package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/store"
)

var errStoreUnavailable = errors.New("database is locked")

// flakyStore fails the next failUserLoads user lookups.
type flakyStore struct {
	store.Store
	failUserLoads atomic.Int32
}

func (s *flakyStore) Users() store.Users { return &flakyUsers{Users: s.Store.Users(), s: s} }

type flakyUsers struct {
	store.Users
	s *flakyStore
}

func (u *flakyUsers) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if u.s.failUserLoads.Add(-1) >= 0 {
		return domain.User{}, errStoreUnavailable
	}
	return u.Users.GetUserByID(ctx, id)
}

// txOnlyStore refuses profile writes made outside WithTx and counts the
// transactions it hands out.
type txOnlyStore struct {
	store.Store
	txs atomic.Int32
}

func (s *txOnlyStore) AdminProfiles() store.AdminProfiles {
	return readOnlyProfiles{AdminProfiles: s.Store.AdminProfiles()}
}

func (s *txOnlyStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.txs.Add(1)
	return s.Store.WithTx(ctx, fn)
}

var errWriteOutsideTx = errors.New("profile write outside transaction")

type readOnlyProfiles struct {
	store.AdminProfiles
}

func (readOnlyProfiles) Enable(context.Context, string, string) error { return errWriteOutsideTx }
func (readOnlyProfiles) Disable(context.Context, string) error        { return errWriteOutsideTx }

// racingStore runs race before every backup-code swap, standing in for a
// concurrent request that gets there first.
type racingStore struct {
	store.Store
	race func()
}

func (s *racingStore) AdminProfiles() store.AdminProfiles {
	return racingProfiles{AdminProfiles: s.Store.AdminProfiles(), race: s.race}
}

type racingProfiles struct {
	store.AdminProfiles
	race func()
}

func (p racingProfiles) SwapBackupCodes(ctx context.Context, userID, expected, next string) error {
	p.race()
	return p.AdminProfiles.SwapBackupCodes(ctx, userID, expected, next)
}
