package migrations

func init() {
	Migrations.MustRegister(up("create_catalog"), down("questions", "categories"))
}
