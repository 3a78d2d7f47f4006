// Package models holds the records exchanged with the upstream catalog and
// the normalizers that turn its loosely shaped JSON into typed values.
package models

import (
	"math"
	"time"
)

// Drug is an upstream drug-batch record. It is carried through opaquely:
// unknown fields survive enrichment untouched. Accessors resolve the
// signals the risk scorer needs from a fixed priority list of keys.
type Drug map[string]interface{}

// ID returns the record identifier
func (d Drug) ID() (string, bool) {
	return firstString(d, "_id", "id")
}

// Recalled reports an explicit recall flag or a recall status string
func (d Drug) Recalled() bool {
	if flag, ok := firstBool(d, "isRecalled", "recalled"); ok && flag {
		return true
	}
	if status, ok := firstString(d, "recallStatus"); ok && equalsAny(status, "recalled", "active", "initiated") {
		return true
	}
	if status, ok := firstString(d, "status"); ok && equalsAny(status, "recalled") {
		return true
	}
	return false
}

// FlaggedExpired reports an explicit expired flag or status
func (d Drug) FlaggedExpired() bool {
	if flag, ok := firstBool(d, "isExpired"); ok && flag {
		return true
	}
	status, ok := firstString(d, "status")
	return ok && equalsAny(status, "expired")
}

// FlaggedNearExpiry reports an explicit near-expiry flag or status
func (d Drug) FlaggedNearExpiry() bool {
	if flag, ok := firstBool(d, "isNearExpiry"); ok && flag {
		return true
	}
	status, ok := firstString(d, "status")
	return ok && equalsAny(status, "near_expiry", "near-expiry")
}

var expiryLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ExpiryDate parses expiryDate; unparseable values are absent
func (d Drug) ExpiryDate() (time.Time, bool) {
	raw, ok := firstString(d, "expiryDate")
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysUntilExpiry returns the explicit daysUntilExpiry field, or the whole
// days between now and expiryDate rounded down. nil means unknown. An
// explicit value outside the int range is ignored like a missing one.
func (d Drug) DaysUntilExpiry(now time.Time) *int {
	if raw, ok := firstNumber(d, "daysUntilExpiry"); ok {
		if days, ok := wholeNumber(raw); ok {
			return &days
		}
	}
	expiry, ok := d.ExpiryDate()
	if !ok {
		return nil
	}
	v := int(math.Floor(expiry.Sub(now).Hours() / 24))
	return &v
}

// QualityResult returns the quality-test outcome, empty when untested
func (d Drug) QualityResult() string {
	if test, ok := objectValue(d, "qualityTest"); ok {
		if result, ok := firstString(test, "result", "status"); ok {
			return result
		}
	}
	result, _ := firstString(d, "qualityTestResult", "qualityStatus")
	return result
}

// QualityFailed reports a failed quality test
func (d Drug) QualityFailed() bool {
	return equalsAny(d.QualityResult(), "failed", "fail")
}

// QualityPending reports a quality test still awaiting a result
func (d Drug) QualityPending() bool {
	return equalsAny(d.QualityResult(), "pending")
}

// ManufacturerID resolves the manufacturer reference, which is a string id
// or an embedded manufacturer document.
func (d Drug) ManufacturerID() (string, bool) {
	if v, ok := lookup(d, "manufacturer"); ok {
		if id, ok := refID(v); ok {
			return id, true
		}
	}
	return firstString(d, "manufacturerId")
}

// BatchNumber returns the batch number
func (d Drug) BatchNumber() (string, bool) {
	return firstString(d, "batchNumber", "batchNo")
}

// BlockchainID returns the ledger linkage identifier
func (d Drug) BlockchainID() (string, bool) {
	return firstString(d, "blockchainId", "blockchainTxHash", "blockchainHash")
}

// With returns a shallow copy of d with key set to value. d is not modified.
func (d Drug) With(key string, value interface{}) Drug {
	out := make(Drug, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[key] = value
	return out
}
