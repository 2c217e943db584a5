package testutil

import (
	"time"

	"github.com/google/uuid"
)

// Fixed identities for deterministic tests.
var (
	TestTenantID   = uuid.MustParse("00000000-0000-0000-0000-000000000010")
	TestBorrowerID = uuid.MustParse("00000000-0000-0000-0000-000000000020")
	TestLoanID     = uuid.MustParse("00000000-0000-0000-0000-000000000030")
)

// TestDisbursementDate is the default disbursement date of test loans.
var TestDisbursementDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Day returns the date n days after TestDisbursementDate.
func Day(n int) time.Time { return TestDisbursementDate.AddDate(0, 0, n) }
