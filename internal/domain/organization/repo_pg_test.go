package organization

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationListQuery(t *testing.T) {
	query, args, err := organizationListQuery(OrganizationFilter{Status: StatusActive, Name: "river"}).
		Select(orgCols...).Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "organization"`)
	assert.Contains(t, query, `"status" = $1`)
	assert.Contains(t, query, `"name" ILIKE $2`)
	assert.Equal(t, []interface{}{StatusActive, "%river%"}, args)
}

func TestOrganizationListQuery_NoFilter(t *testing.T) {
	query, args, err := organizationListQuery(OrganizationFilter{}).Select(orgCols...).Prepared(true).ToSQL()
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestCategoryListQuery(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	query, args, err := categoryListQuery(CategoryFilter{OrganizationIDs: ids, Status: StatusActive}).
		Select(categoryCols...).Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "category"`)
	assert.Contains(t, query, `"organization_id" IN ($1, $2)`)
	assert.Contains(t, query, `"status" = $3`)
	assert.Len(t, args, 3)
}

func TestCategoryListQuery_Count(t *testing.T) {
	ds := categoryListQuery(CategoryFilter{Type: "general"})
	query, args, err := ds.Select(countExpr()).Prepared(true).ToSQL()
	require.NoError(t, err)
	assert.Contains(t, query, "COUNT(*)")
	assert.Contains(t, query, `"type" ILIKE $1`)
	assert.Equal(t, []interface{}{"general"}, args)
}
