package migrations

func init() {
	Migrations.MustRegister(up("create_documents"), down("documents"))
}
