package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/erp/jointenant/internal/infrastructure/migration"
	"github.com/erp/jointenant/internal/infrastructure/persistence/association"
	"gorm.io/gorm"
)

// writeRelations prints one line per declared many-to-many relation.
func writeRelations(w io.Writer, relations []*association.Relation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tRELATION\tJOIN TABLE\tTENANT COLUMN\tTENANT TYPE\tHOOKS")
	for _, rel := range relations {
		column, className := "-", "-"
		if ref := rel.Join.Tenant(); ref != nil {
			column, className = ref.Column, ref.ClassName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			rel.Model.Name, rel.Name, rel.Join.Table, column, className, rel.Join.HookCount())
	}
	return tw.Flush()
}

// missingTenantColumns returns the tenant columns declared on join entities
// that the connected schema does not have yet. Each join table is reported once.
func missingTenantColumns(db *gorm.DB, relations []*association.Relation) []migration.JoinTenantColumn {
	seen := make(map[string]bool)
	var missing []migration.JoinTenantColumn
	for _, rel := range relations {
		ref := rel.Join.Tenant()
		if ref == nil || seen[rel.Join.Table] {
			continue
		}
		seen[rel.Join.Table] = true

		if db.Migrator().HasTable(rel.Join.Table) && db.Migrator().HasColumn(rel.Join.Table, ref.Column) {
			continue
		}
		missing = append(missing, migration.JoinTenantColumn{
			Table:           rel.Join.Table,
			Column:          ref.Column,
			ReferencedTable: db.NamingStrategy.TableName(ref.ClassName),
		})
	}
	return missing
}
