package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/validation"
)

const dateLayout = "2006-01-02"

// Catalog is an immutable, validated set of credit offers.
type Catalog struct {
	offers []models.CreditOffer
	byID   map[string]int
}

// New validates offers and builds a catalog. Any malformed offer fails the whole catalog.
func New(offers []models.CreditOffer) (*Catalog, error) {
	if err := validation.ValidateCatalog(offers); err != nil {
		return nil, err
	}

	c := &Catalog{
		offers: make([]models.CreditOffer, len(offers)),
		byID:   make(map[string]int, len(offers)),
	}
	for i, offer := range offers {
		c.offers[i] = cloneOffer(offer)
		c.byID[offer.ID] = i
	}
	return c, nil
}

// Offers returns a copy of the offers in catalog order.
func (c *Catalog) Offers() []models.CreditOffer {
	out := make([]models.CreditOffer, len(c.offers))
	for i, offer := range c.offers {
		out[i] = cloneOffer(offer)
	}
	return out
}

// Lookup returns the offer with the given id.
func (c *Catalog) Lookup(id string) (models.CreditOffer, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.CreditOffer{}, false
	}
	return cloneOffer(c.offers[i]), true
}

// Len returns the number of offers.
func (c *Catalog) Len() int {
	return len(c.offers)
}

func cloneOffer(o models.CreditOffer) models.CreditOffer {
	o.PrimaryServices = append([]string(nil), o.PrimaryServices...)
	o.SupportingServices = append([]string(nil), o.SupportingServices...)
	o.Attestation.ReminderOffsetsDays = append([]int(nil), o.Attestation.ReminderOffsetsDays...)
	o.Attestation.RequiredDocuments = append([]string(nil), o.Attestation.RequiredDocuments...)
	return o
}

type fileCatalog struct {
	Offers []fileOffer `yaml:"offers"`
}

type fileOffer struct {
	ID                 string          `yaml:"id"`
	Name               string          `yaml:"name"`
	DiscountPercent    string          `yaml:"discount_percent"`
	PrimaryServices    []string        `yaml:"primary_services"`
	SupportingServices []string        `yaml:"supporting_services"`
	MinimumSpend       string          `yaml:"minimum_spend"`
	Description        string          `yaml:"description"`
	Attestation        fileAttestation `yaml:"attestation"`
}

type fileAttestation struct {
	Title               string   `yaml:"title"`
	Deadline            string   `yaml:"deadline"`
	ReminderOffsetsDays []int    `yaml:"reminder_offsets_days"`
	RequiredDocuments   []string `yaml:"required_documents"`
	Template            string   `yaml:"template"`
}

// LoadFile reads a YAML catalog and validates it.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and validates it.
func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	offers := make([]models.CreditOffer, 0, len(fc.Offers))
	for _, fo := range fc.Offers {
		offer, err := fo.toModel()
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}

	return New(offers)
}

func (fo fileOffer) toModel() (models.CreditOffer, error) {
	discount, err := parseDecimal(fo.ID, "discount_percent", fo.DiscountPercent)
	if err != nil {
		return models.CreditOffer{}, err
	}
	minSpend, err := parseDecimal(fo.ID, "minimum_spend", fo.MinimumSpend)
	if err != nil {
		return models.CreditOffer{}, err
	}

	var deadline time.Time
	if fo.Attestation.Deadline != "" {
		deadline, err = time.Parse(dateLayout, fo.Attestation.Deadline)
		if err != nil {
			return models.CreditOffer{}, &validation.ConfigurationError{
				OfferID: fo.ID,
				Field:   "attestation.deadline",
				Message: "must be a YYYY-MM-DD date",
			}
		}
	}

	return models.CreditOffer{
		ID:                 fo.ID,
		Name:               fo.Name,
		DiscountPercent:    discount,
		PrimaryServices:    fo.PrimaryServices,
		SupportingServices: fo.SupportingServices,
		MinimumSpend:       minSpend,
		Description:        fo.Description,
		Attestation: models.AttestationMeta{
			Title:               fo.Attestation.Title,
			Deadline:            deadline,
			ReminderOffsetsDays: fo.Attestation.ReminderOffsetsDays,
			RequiredDocuments:   fo.Attestation.RequiredDocuments,
			Template:            fo.Attestation.Template,
		},
	}, nil
}

func parseDecimal(offerID, field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &validation.ConfigurationError{
			OfferID: offerID,
			Field:   field,
			Message: "must be a decimal number",
		}
	}
	return d, nil
}
