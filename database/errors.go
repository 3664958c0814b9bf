package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/myscheme/schemeapi/apperrors"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	return strings.Contains(err.Error(), "E11000 duplicate key error")
}

// mapFindErr turns ErrNoDocuments into a not-found error and wraps the rest.
func mapFindErr(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound(what + " not found")
	}
	return fmt.Errorf("find %s: %w", what, err)
}

// mapWriteErr turns duplicate-key violations into conflicts.
func mapWriteErr(err error, op, conflictMsg string) error {
	if IsDuplicateKey(err) {
		return apperrors.Conflict(conflictMsg).WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
