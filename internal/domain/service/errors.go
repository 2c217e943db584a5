package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fatal replay errors so callers can tell bad input data
// from broken configuration.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindReferential
	KindUnsupported
	KindInvalidData
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindReferential:
		return "referential"
	case KindUnsupported:
		return "unsupported"
	case KindInvalidData:
		return "invalid_data"
	}
	return "unknown"
}

// Sentinel errors raised by the replay.
var (
	ErrMissingAllocationRule         = errors.New("no DEFAULT payment allocation rule configured")
	ErrMissingCreditAllocationRule   = errors.New("no credit allocation rule configured")
	ErrUnsupportedFrequency          = errors.New("unsupported frequency")
	ErrOriginalTransactionNotFound   = errors.New("original transaction not found")
	ErrUnsupportedTransactionType    = errors.New("unsupported transaction type")
	ErrNoFutureInstallments          = errors.New("no future installments to allocate to")
	ErrDownPaymentInstallmentMissing = errors.New("down payment installment missing")
	ErrInvalidReAgeParameter         = errors.New("invalid re-age parameter")
	ErrChargeNotFound                = errors.New("charge not found")
	ErrInvalidScheduleParameter      = errors.New("invalid schedule parameter")
)

var kinds = map[error]ErrorKind{
	ErrMissingAllocationRule:         KindConfiguration,
	ErrMissingCreditAllocationRule:   KindConfiguration,
	ErrUnsupportedFrequency:          KindConfiguration,
	ErrOriginalTransactionNotFound:   KindReferential,
	ErrChargeNotFound:                KindReferential,
	ErrUnsupportedTransactionType:    KindUnsupported,
	ErrNoFutureInstallments:          KindInvalidData,
	ErrDownPaymentInstallmentMissing: KindInvalidData,
	ErrInvalidReAgeParameter:         KindInvalidData,
	ErrInvalidScheduleParameter:      KindInvalidData,
}

// KindOf returns the kind of the first sentinel found in err's chain.
func KindOf(err error) ErrorKind {
	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// transactionError wraps a sentinel with the transaction it was raised for.
func transactionError(sentinel error, txType fmt.Stringer, txID string) error {
	if txID == "" {
		return fmt.Errorf("%w: %s", sentinel, txType)
	}
	return fmt.Errorf("%w: %s %s", sentinel, txType, txID)
}
