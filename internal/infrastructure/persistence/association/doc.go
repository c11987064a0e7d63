// Package association declares GORM many-to-many relations and, for relations
// declared with tenant_enabled, guards their join tables so that every join
// row is written with the tenant of the current context.
//
// Declarations run once at start-up:
//
//	registry := association.NewRegistry()
//	_ = db.Use(registry)
//	aug := association.NewAugmentor(association.NewGormDeclarer(db, registry),
//		association.WithTenantType("Tenant", &models.TenantModel{}))
//	_, err := aug.HasAndBelongsToMany(&models.ArticleModel{}, "tags", nil, association.Options{
//		association.OptionJoinModel:     &models.ArticleTagModel{},
//		association.OptionTenantEnabled: true,
//		association.OptionTenantColumn:  "tenant_id",
//	})
//
// Writes to article_tags then fail with *tenant.MissingTenantError unless the
// context carries a tenant (tenant.WithID).
package association
