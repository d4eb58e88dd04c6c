package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesEmpty(t *testing.T) {
	var p predicates
	assert.Equal(t, "", p.where())
	assert.Equal(t, "", p.page(0, 0))
	assert.Empty(t, p.args)
}

func TestPredicatesNumberPlaceholdersInOrder(t *testing.T) {
	var p predicates
	p.add("owner_id=$%d", "owner-1")
	p.add("status=$%d", "active")

	assert.Equal(t, " WHERE owner_id=$1 AND status=$2", p.where())
	assert.Equal(t, " LIMIT $3 OFFSET $4", p.page(20, 40))
	assert.Equal(t, []any{"owner-1", "active", 20, 40}, p.args)
}

func TestPolicyFilterKeepsValuesOutOfSQL(t *testing.T) {
	injected := "x' OR '1'='1"
	sql, args := buildPolicyListQuery(PolicyFilter{PolicyType: &injected, Limit: 10})

	assert.NotContains(t, sql, injected)
	assert.Contains(t, sql, "policy_type=$1")
	assert.Contains(t, sql, "ORDER BY created_at DESC")
	assert.Equal(t, []any{injected, 10}, args)
}
