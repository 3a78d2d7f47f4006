package testutil

import (
	"time"

	"drug-risk-service/internal/models"
)

// DrugBuilder helps build upstream drug records
type DrugBuilder struct {
	drug models.Drug
}

// NewDrugBuilder starts a traceable, active drug with the given id
func NewDrugBuilder(id string) *DrugBuilder {
	return &DrugBuilder{
		drug: models.Drug{
			"_id":          id,
			"name":         "Drug " + id,
			"batchNumber":  "B-" + id,
			"blockchainId": "0x" + id,
			"manufacturer": "m-" + id,
		},
	}
}

func (b *DrugBuilder) WithManufacturer(id string) *DrugBuilder {
	b.drug["manufacturer"] = id
	return b
}

func (b *DrugBuilder) WithoutManufacturer() *DrugBuilder {
	delete(b.drug, "manufacturer")
	return b
}

func (b *DrugBuilder) Recalled() *DrugBuilder {
	b.drug["isRecalled"] = true
	b.drug["recallStatus"] = "recalled"
	return b
}

func (b *DrugBuilder) Expired() *DrugBuilder {
	b.drug["isExpired"] = true
	return b
}

func (b *DrugBuilder) NearExpiry() *DrugBuilder {
	b.drug["isNearExpiry"] = true
	return b
}

// ExpiresIn sets expiryDate days after now
func (b *DrugBuilder) ExpiresIn(now time.Time, days int) *DrugBuilder {
	b.drug["expiryDate"] = now.AddDate(0, 0, days).Format(time.RFC3339)
	return b
}

func (b *DrugBuilder) WithQuality(result string) *DrugBuilder {
	b.drug["qualityTest"] = map[string]interface{}{"result": result}
	return b
}

func (b *DrugBuilder) Untraceable() *DrugBuilder {
	delete(b.drug, "batchNumber")
	delete(b.drug, "blockchainId")
	return b
}

func (b *DrugBuilder) With(key string, value interface{}) *DrugBuilder {
	b.drug[key] = value
	return b
}

func (b *DrugBuilder) WithoutID() *DrugBuilder {
	delete(b.drug, "_id")
	return b
}

func (b *DrugBuilder) Build() models.Drug {
	out := make(models.Drug, len(b.drug))
	for k, v := range b.drug {
		out[k] = v
	}
	return out
}
