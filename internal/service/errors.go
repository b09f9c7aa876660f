package service

import (
	apperr "github.com/vedran77/covoit/pkg/errors"
)

// storeErr converts a repository failure into a transient error so it is
// never mistaken for a domain outcome.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.ErrStoreUnavailable(err)
}
