package models

// QrSignal aggregates the recent QR verification scans of one drug
type QrSignal struct {
	RecentTotal int `json:"recentTotal"`
	RecentFails int `json:"recentFails"`
}

// QrIndex maps drug id to its QR signal
type QrIndex map[string]QrSignal

// Signal returns the drug's signal, zero when it has no recent scans
func (idx QrIndex) Signal(drugID string) QrSignal {
	if idx == nil || drugID == "" {
		return QrSignal{}
	}
	return idx[drugID]
}

// BuildQrIndex aggregates data.recent from a QR statistics snapshot.
// Each scan names its drug through drugId, or through drug as a string id
// or an embedded document. Items that are not objects and scans without
// a resolvable drug are skipped. A nil or malformed snapshot yields an
// empty index.
func BuildQrIndex(env *Envelope) QrIndex {
	index := make(QrIndex)
	if env == nil || !env.HasData() {
		return index
	}

	var data struct {
		Recent []interface{} `json:"recent"`
	}
	if err := env.DecodeData(&data); err != nil {
		return index
	}

	for _, item := range data.Recent {
		scan, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		drugID, ok := scanDrugID(scan)
		if !ok {
			continue
		}
		signal := index[drugID]
		signal.RecentTotal++
		if scanFailed(scan) {
			signal.RecentFails++
		}
		index[drugID] = signal
	}
	return index
}

func scanDrugID(scan map[string]interface{}) (string, bool) {
	if id, ok := firstString(scan, "drugId"); ok {
		return id, true
	}
	if v, ok := lookup(scan, "drug"); ok {
		return refID(v)
	}
	return "", false
}

func scanFailed(scan map[string]interface{}) bool {
	if result, ok := firstString(scan, "result", "status"); ok &&
		equalsAny(result, "fail", "failed", "invalid", "counterfeit") {
		return true
	}
	if valid, ok := firstBool(scan, "valid"); ok && !valid {
		return true
	}
	if success, ok := firstBool(scan, "success"); ok && !success {
		return true
	}
	return false
}
