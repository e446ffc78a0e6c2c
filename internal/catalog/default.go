package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"credit-coupling-api/internal/models"
)

var (
	defaultDeadline = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	defaultOffsets  = []int{30, 14, 7, 3, 1}
)

// DefaultOffers returns the built-in credit offers.
func DefaultOffers() []models.CreditOffer {
	return []models.CreditOffer{
		{
			ID:                 "gen_ai_credit",
			Name:               "Generative AI Credit",
			DiscountPercent:    decimal.NewFromInt(25),
			PrimaryServices:    []string{"Amazon SageMaker", "Amazon Bedrock", "AWS Lambda"},
			SupportingServices: []string{"Amazon EC2", "Amazon S3"},
			MinimumSpend:       decimal.NewFromInt(1000),
			Description:        "Combines ML/AI services with compute for enhanced AI workloads",
			Attestation: models.AttestationMeta{
				Title:               "Gen AI Credit Attestation",
				Deadline:            defaultDeadline,
				ReminderOffsetsDays: defaultOffsets,
				RequiredDocuments:   []string{"SageMaker usage report", "Lambda function list", "Graviton instance verification"},
				Template:            "Gen AI workload attestation form",
			},
		},
		{
			ID:                 "graviton_optimization_credit",
			Name:               "Graviton Optimization Credit",
			DiscountPercent:    decimal.NewFromInt(31),
			PrimaryServices:    []string{"Amazon EC2"},
			SupportingServices: []string{"Amazon RDS", "Amazon ElastiCache"},
			MinimumSpend:       decimal.NewFromInt(500),
			Description:        "ARM-based instances with database services for cost optimization",
			Attestation: models.AttestationMeta{
				Title:               "Graviton Optimization Attestation",
				Deadline:            defaultDeadline,
				ReminderOffsetsDays: defaultOffsets,
				RequiredDocuments:   []string{"ARM instance usage report", "RDS Graviton verification", "Performance benchmarks"},
				Template:            "Graviton optimization attestation form",
			},
		},
		{
			ID:                 "data_analytics_credit",
			Name:               "Data Analytics Credit",
			DiscountPercent:    decimal.NewFromInt(22),
			PrimaryServices:    []string{"Amazon Redshift", "Amazon EMR", "AWS Glue"},
			SupportingServices: []string{"Amazon S3", "Amazon Kinesis"},
			MinimumSpend:       decimal.NewFromInt(800),
			Description:        "Big data processing with storage and streaming services",
			Attestation: models.AttestationMeta{
				Title:               "Data Analytics Credit Attestation",
				Deadline:            defaultDeadline,
				ReminderOffsetsDays: defaultOffsets,
				RequiredDocuments:   []string{"Redshift usage report", "EMR job statistics", "S3 data volume metrics"},
				Template:            "Data analytics workload attestation form",
			},
		},
		{
			ID:                 "serverless_credit",
			Name:               "Serverless Optimization Credit",
			DiscountPercent:    decimal.NewFromInt(18),
			PrimaryServices:    []string{"AWS Lambda", "Amazon API Gateway"},
			SupportingServices: []string{"Amazon DynamoDB", "Amazon S3"},
			MinimumSpend:       decimal.NewFromInt(300),
			Description:        "Event-driven architecture with managed databases",
			Attestation: models.AttestationMeta{
				Title:               "Serverless Optimization Attestation",
				Deadline:            defaultDeadline,
				ReminderOffsetsDays: defaultOffsets,
				RequiredDocuments:   []string{"Lambda invocation metrics", "API Gateway usage", "DynamoDB performance data"},
				Template:            "Serverless architecture attestation form",
			},
		},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultOffers())
	if err != nil {
		panic("catalog: built-in offers are invalid: " + err.Error())
	}
	return c
}
