package migrations

func init() {
	Migrations.MustRegister(up("create_coupons"), down("coupons"))
}
