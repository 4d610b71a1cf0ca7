/*
Package dsl provides a Go DSL for programmatically constructing workflow definitions.

It is an alternative to YAML or JSON configuration when workflows are generated
in code or written inline in tests, with compile-time checking of the builder calls.

Example usage:

	b := dsl.New("pending")

	b.Add("pending").
		Go("confirmed", "cancelled").
		When("field_payment_authorized").
		Requires("sales_rep", "admin").
		Before("validate_order").
		After("send_confirmation")

	b.Add("confirmed").Go("delivered")
	b.Add("delivered").Final()
	b.Add("cancelled").Final()

	def, err := b.Build()
	// ... eng.Register("orders", def)
*/
package dsl
