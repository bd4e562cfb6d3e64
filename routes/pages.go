package routes

import "github.com/go-barry/pagebridge/core"

func Index(c *core.Ctx) error {
	props := core.Props{
		"message": "hello from index",
	}
	return c.Render("Index", props)
}

func About(c *core.Ctx) error {
	props := core.Props{
		"amount": "$100",
	}
	return c.Render("About", props)
}
