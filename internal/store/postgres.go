package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"agrocredit-workers/internal/common/database"
	"agrocredit-workers/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Repository on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Repository = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectOperationWithProfile = `
	SELECT o.id, o.applicant_id, o.requested_amount, o.term_months, o.purpose,
	       o.guarantees, o.guarantee_value, o.operation_type, o.status,
	       o.created_at, o.updated_at,
	       a.id, a.region, a.crops, a.years_in_operation, a.has_insurance, a.tier,
	       f.applicant_id, f.annual_revenue, f.total_debt, f.cash_flow_monthly,
	       f.guarantee_value, f.has_negative_records, f.credit_history_years
	FROM credit_operations o
	JOIN applicant_profiles a ON a.id = o.applicant_id
	LEFT JOIN financial_profiles f ON f.applicant_id = a.id
	WHERE o.id = $1`

func (s *PostgresStore) GetOperationWithProfile(ctx context.Context, operationID string) (*models.CreditOperation, error) {
	var (
		op         models.CreditOperation
		applicant  models.ApplicantProfile
		guarantees pq.StringArray
		crops      pq.StringArray
		status     string
		tier       string

		finID      sql.NullString
		revenue    decimal.NullDecimal
		debt       decimal.NullDecimal
		cashFlow   pq.StringArray
		finGuar    decimal.NullDecimal
		negative   sql.NullBool
		historyYrs sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, selectOperationWithProfile, operationID).Scan(
		&op.ID, &op.ApplicantID, &op.RequestedAmount, &op.TermMonths, &op.Purpose,
		&guarantees, &op.GuaranteeValue, &op.OperationType, &status,
		&op.CreatedAt, &op.UpdatedAt,
		&applicant.ID, &applicant.Region, &crops, &applicant.YearsInOperation, &applicant.HasInsurance, &tier,
		&finID, &revenue, &debt, &cashFlow,
		&finGuar, &negative, &historyYrs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query operation %s: %w", operationID, err)
	}

	op.Guarantees = []string(guarantees)
	op.Status = models.OperationStatus(status)
	applicant.Crops = []string(crops)
	applicant.Tier = models.ApplicantTier(tier)

	if finID.Valid {
		series, err := parseDecimals(cashFlow)
		if err != nil {
			return nil, fmt.Errorf("parse cash flow for applicant %s: %w", applicant.ID, err)
		}
		applicant.Financial = &models.FinancialProfile{
			AnnualRevenue:      revenue.Decimal,
			TotalDebt:          debt.Decimal,
			CashFlowMonthly:    series,
			GuaranteeValue:     finGuar.Decimal,
			HasNegativeRecords: negative.Bool,
			CreditHistoryYears: int(historyYrs.Int64),
		}
	}
	op.Applicant = &applicant

	return &op, nil
}

func parseDecimals(values []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

const selectActivePartners = `
	SELECT id, name, type, active, ticket_min, ticket_max,
	       accepted_guarantees, accepted_regions, accepted_crops, accepted_operation_types,
	       min_score, created_at
	FROM partner_institutions
	WHERE active = TRUE
	ORDER BY created_at ASC, id ASC`

func (s *PostgresStore) ListActivePartners(ctx context.Context) ([]models.PartnerInstitution, error) {
	rows, err := s.db.QueryContext(ctx, selectActivePartners)
	if err != nil {
		return nil, fmt.Errorf("query active partners: %w", err)
	}
	defer rows.Close()

	var partners []models.PartnerInstitution
	for rows.Next() {
		var (
			p                                   models.PartnerInstitution
			partnerType                         string
			guarantees, regions, crops, opTypes pq.StringArray
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &partnerType, &p.Active, &p.TicketMin, &p.TicketMax,
			&guarantees, &regions, &crops, &opTypes,
			&p.MinScore, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		p.Type = models.PartnerType(partnerType)
		p.AcceptedGuarantees = []string(guarantees)
		p.AcceptedRegions = []string(regions)
		p.AcceptedCrops = []string(crops)
		p.AcceptedOperationTypes = []string(opTypes)
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partners: %w", err)
	}
	return partners, nil
}

func (s *PostgresStore) GetRiskScore(ctx context.Context, operationID string) (*models.RiskScore, error) {
	var (
		score       models.RiskScore
		profile     string
		factors     []byte
		eligibility []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, operation_id, total_score, risk_profile, factors, eligibility, created_at, valid_until
		FROM risk_scores
		WHERE operation_id = $1`, operationID,
	).Scan(&score.ID, &score.OperationID, &score.TotalScore, &profile, &factors, &eligibility, &score.CreatedAt, &score.ValidUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query risk score for %s: %w", operationID, err)
	}

	score.Profile = models.RiskProfile(profile)
	if err := json.Unmarshal(factors, &score.Factors); err != nil {
		return nil, fmt.Errorf("decode score factors: %w", err)
	}
	if err := json.Unmarshal(eligibility, &score.Eligibility); err != nil {
		return nil, fmt.Errorf("decode eligibility: %w", err)
	}
	return &score, nil
}

func (s *PostgresStore) ReplaceRiskScore(ctx context.Context, score *models.RiskScore) error {
	factors, err := json.Marshal(score.Factors)
	if err != nil {
		return fmt.Errorf("encode score factors: %w", err)
	}
	eligibility, err := json.Marshal(score.Eligibility)
	if err != nil {
		return fmt.Errorf("encode eligibility: %w", err)
	}

	return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM risk_scores WHERE operation_id = $1`, score.OperationID); err != nil {
			return fmt.Errorf("delete previous risk score: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO risk_scores (id, operation_id, total_score, risk_profile, factors, eligibility, created_at, valid_until)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			score.ID, score.OperationID, score.TotalScore, string(score.Profile),
			factors, eligibility, score.CreatedAt, score.ValidUntil,
		); err != nil {
			return fmt.Errorf("insert risk score: %w", err)
		}
		return updateStatus(ctx, tx, score.OperationID, models.OperationStatusScoring)
	})
}

func (s *PostgresStore) ReplaceMatchResults(ctx context.Context, operationID string, results []models.MatchResult) error {
	encoded := make([][]byte, len(results))
	for i := range results {
		b, err := json.Marshal(results[i].Factors)
		if err != nil {
			return fmt.Errorf("encode match factors: %w", err)
		}
		encoded[i] = b
	}

	return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM match_results WHERE operation_id = $1`, operationID); err != nil {
			return fmt.Errorf("delete previous matches: %w", err)
		}
		for i, r := range results {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO match_results (id, operation_id, partner_id, partner_name, partner_type, match_score, factors, rank, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				r.ID, operationID, r.PartnerID, r.PartnerName, string(r.PartnerType),
				r.Score, encoded[i], r.Rank, r.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert match %d: %w", r.Rank, err)
			}
		}
		return updateStatus(ctx, tx, operationID, models.OperationStatusMatching)
	})
}

func (s *PostgresStore) GetMatchResults(ctx context.Context, operationID string) ([]models.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation_id, partner_id, partner_name, partner_type, match_score, factors, rank, created_at
		FROM match_results
		WHERE operation_id = $1
		ORDER BY rank ASC`, operationID)
	if err != nil {
		return nil, fmt.Errorf("query matches for %s: %w", operationID, err)
	}
	defer rows.Close()

	results := []models.MatchResult{}
	for rows.Next() {
		var (
			r           models.MatchResult
			partnerType string
			factors     []byte
		)
		if err := rows.Scan(&r.ID, &r.OperationID, &r.PartnerID, &r.PartnerName, &partnerType,
			&r.Score, &factors, &r.Rank, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		r.PartnerType = models.PartnerType(partnerType)
		if err := json.Unmarshal(factors, &r.Factors); err != nil {
			return nil, fmt.Errorf("decode match factors: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return results, nil
}

func (s *PostgresStore) UpdateOperationStatus(ctx context.Context, operationID string, status models.OperationStatus) error {
	return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return updateStatus(ctx, tx, operationID, status)
	})
}

func updateStatus(ctx context.Context, tx *sql.Tx, operationID string, status models.OperationStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE credit_operations SET status = $2, updated_at = NOW() WHERE id = $1`,
		operationID, string(status))
	if err != nil {
		return fmt.Errorf("update operation status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update operation status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
