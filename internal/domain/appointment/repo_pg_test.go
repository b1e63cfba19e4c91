package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListQuery_Own(t *testing.T) {
	query, args, err := listQuery(ListFilter{UserID: "u1", Scope: ScopeAll, Status: StatusActive}).
		Select(appointmentCols...).Order(listOrder(ScopeAll)...).Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "appointment"`)
	assert.Contains(t, query, `"user_id" = $1`)
	assert.Contains(t, query, `"status" = $2`)
	assert.NotContains(t, query, "is_scheduled\" IS")
	assert.Contains(t, query, `ORDER BY "created_at" ASC, "id" ASC`)
	assert.Equal(t, []interface{}{"u1", StatusActive}, args)
}

func TestListQuery_UnscheduledByCategory(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	query, args, err := listQuery(ListFilter{Scope: ScopeUnscheduled, Status: StatusActive, CategoryIDs: ids}).
		Select(appointmentCols...).Order(listOrder(ScopeUnscheduled)...).Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, query, `"is_scheduled" IS FALSE`)
	assert.Contains(t, query, `"category_id" IN ($2, $3)`)
	assert.Contains(t, query, `ORDER BY "counter" ASC, "created_at" ASC`)
	assert.Len(t, args, 3)
}

func TestListQuery_RestrictedToGroups(t *testing.T) {
	query, args, err := listQuery(ListFilter{
		Scope: ScopeScheduled, Status: StatusActive, RestrictToGroups: true, Groups: []string{"north", "south"},
	}).Select(appointmentCols...).Order(listOrder(ScopeScheduled)...).Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, query, `"is_scheduled" IS TRUE`)
	assert.Contains(t, query, `"category_id" IN ((SELECT "c"."id" FROM "category" AS "c"`)
	assert.Contains(t, query, `INNER JOIN "organization" AS "o"`)
	assert.Contains(t, query, `"c"."group_name" IN ($2, $3)`)
	assert.Contains(t, query, `"o"."group_name" IN ($4, $5)`)
	assert.Contains(t, query, `ORDER BY "scheduled_time" ASC, "created_at" ASC`)
	assert.Equal(t, []interface{}{StatusActive, "north", "south", "north", "south"}, args)
}
