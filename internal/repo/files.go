package repo

import (
	"context"
	"fmt"

	"maintline/internal/media"
)

// OwningAgents resolves a stored file path back to the agent IDs of the
// jobs that reference it. The path is matched exactly as stored. A quote
// download is legitimate for an agent only when exactly one job owns the
// path and that job belongs to the agent, so callers get the full list
// and decide.
func (r *Repo) OwningAgents(ctx context.Context, kind media.Kind, path string) ([]string, error) {
	var q string
	switch kind {
	case media.KindQuote:
		q = `SELECT agent_id FROM jobs WHERE quote_path=?`
	case media.KindDepositPOP:
		q = `SELECT agent_id FROM jobs WHERE deposit_pop_path=?`
	case media.KindInvoice:
		q = `SELECT agent_id FROM jobs WHERE invoice_path=?`
	case media.KindFinalPaymentPOP:
		q = `SELECT agent_id FROM jobs WHERE final_payment_pop_path=?`
	case media.KindCompletionPhoto:
		q = `SELECT j.agent_id FROM jobs j
			JOIN job_completion_photos p ON p.job_id = j.id
			WHERE p.photo_path=?`
	default:
		return nil, fmt.Errorf("no lookup for file kind %q", kind)
	}
	rows, err := r.DB.QueryContext(ctx, q, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var agents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		agents = append(agents, id)
	}
	return agents, rows.Err()
}
