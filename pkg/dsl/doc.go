/*
Package dsl provides a fluent builder for constructing Turnstile dialogs in Go.

It lets developers declare waterfalls of steps and the prompts they suspend on
without assembling domain.Dialog values by hand. Build validates the result,
so a malformed dialog fails at startup instead of on a user's turn.

Example usage:

	package main

	import (
		"github.com/aretw0/turnstile/pkg/domain"
		"github.com/aretw0/turnstile/pkg/dsl"
		"github.com/aretw0/turnstile/pkg/validate"
	)

	func main() {
		b := dsl.New("order")

		b.Ask("name", domain.InputText, dsl.Text("What is your name?"))

		b.Ask("topping", domain.InputText, dsl.Text("Which topping?")).
			Validate(validate.RejectContaining("pineapple")).
			Retry("Sorry, pineapple is not a valid choice.")

		b.Say("finish", "Thanks!")

		dialog := b.MustBuild()
		// ... register the dialog and pass the registry to turnstile.New(...)
	}
*/
package dsl
