package main

import (
	"context"

	"osuconv/logging"
	"osuconv/store"
)

// Fail reports a failed beatmap and keeps it in the store when there is one.
func Fail(ctx context.Context, st *store.Store, cat, subject string, reason error) {
	logging.Logger().Error("fail", "category", cat, "beatmap", subject, "err", reason)
	if st == nil {
		return
	}
	if err := st.RecordFailure(ctx, cat, subject, reason.Error()); err != nil {
		logging.Logger().Error("record failure", "err", err)
	}
}
