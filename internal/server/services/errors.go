package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/any2json/internal/common"
)

// domainErrors pass through unchanged; anything else coming out of a store is
// an infrastructure failure.
var domainErrors = []error{
	common.ErrorNotFound,
	common.ErrorAlreadyExists,
	common.ErrorValidation,
	common.ErrorUnavailable,
	common.ErrPoolExhausted,
	common.ErrInsufficientBalance,
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
}
