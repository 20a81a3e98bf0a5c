package election

import (
	"fmt"

	"github.com/tordrt/cfelect/internal/schema"
)

// IsCongruent reports whether the primary key of view is made of exactly the
// same columns as the primary key of base. Column order and the split between
// partition and clustering columns do not matter; adding or removing a column
// does.
//
// base must be the table view is attached to, otherwise ErrSchemaMismatch is
// returned.
func IsCongruent(view *schema.View, base *schema.Table) (bool, error) {
	if view.BaseTableID != base.ID || (view.BaseTableName != "" && view.BaseTableName != base.Name) {
		return false, fmt.Errorf("%w: view %s is defined on %s (%s), not %s.%s (%s)",
			ErrSchemaMismatch, view.Name, view.BaseTableName, view.BaseTableID, base.Keyspace, base.Name, base.ID)
	}

	viewKey := columnSet(view.PrimaryKey())
	baseKey := columnSet(base.PrimaryKey())
	if len(viewKey) != len(baseKey) {
		return false, nil
	}
	for col := range viewKey {
		if !baseKey[col] {
			return false, nil
		}
	}
	return true, nil
}

func columnSet(columns []string) map[string]bool {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return set
}
