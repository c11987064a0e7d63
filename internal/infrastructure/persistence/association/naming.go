package association

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTenantFieldName is used when tenant_column does not look like <name>_id.
const DefaultTenantFieldName = "tenant"

var tenantColumnPattern = regexp.MustCompile(`(\w+)_id`)

// TenantFieldName derives the tenant reference name from a tenant column:
// "account_id" gives "account". Columns without a <name>_id part fall back to
// DefaultTenantFieldName and report matched=false.
func TenantFieldName(column string) (name string, matched bool) {
	m := tenantColumnPattern.FindStringSubmatch(column)
	if m == nil {
		return DefaultTenantFieldName, false
	}
	return m[1], true
}

// camelName turns snake_case into CamelCase: "billing_account" gives "BillingAccount".
func camelName(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(caser.String(part))
	}
	return b.String()
}

// className infers the tenant entity type named by a reference field: "accounts" gives "Account".
func className(field string) string {
	return camelName(inflection.Singular(field))
}
