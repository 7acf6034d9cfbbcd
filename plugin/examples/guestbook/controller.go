package guestbook

import (
	"github.com/leeforge/orchestra/controller"
	"github.com/leeforge/orchestra/form"
	"github.com/leeforge/orchestra/loader"
)

const defaultPageSize = 20

func init() {
	loader.Register(Namespace+`\Controller\IndexController`, func() controller.Controller {
		return &IndexController{pageSize: defaultPageSize}
	})
}

// EntryForm is the sign-the-guestbook form.
type EntryForm struct {
	Name    string `form:"name" label:"Your name" validate:"required,max=100"`
	Email   string `form:"email" validate:"required,email"`
	Message string `form:"message" widget:"textarea" validate:"required,min=3,max=2000"`
}

type IndexController struct {
	pageSize int
}

func (c *IndexController) Actions() map[string]controller.ActionFunc {
	return map[string]controller.ActionFunc{
		"index": c.index,
		"sign":  c.sign,
	}
}

func (c *IndexController) index(ctx *controller.Context) (*controller.Response, error) {
	entries, err := NewRepository(ctx.Entities).Latest(ctx, c.pageSize)
	if err != nil {
		return nil, err
	}
	return ctx.Render("index.html", map[string]any{
		"entries":  entries,
		"sign_url": ctx.URL("index", "sign", nil),
	})
}

func (c *IndexController) sign(ctx *controller.Context) (*controller.Response, error) {
	data := &EntryForm{}
	f := ctx.Forms.Create("entry", data,
		form.WithIntention("guestbook_entry"),
		form.WithAction(ctx.URL("index", "sign", nil)),
	)
	if err := f.HandleRequest(ctx.Request); err != nil {
		return nil, err
	}

	if f.IsValid() {
		entry := &Entry{Name: data.Name, Email: data.Email, Message: data.Message}
		if err := NewRepository(ctx.Entities).Create(ctx, entry); err != nil {
			return nil, err
		}
		ctx.Logger.Info("guestbook signed")
		return ctx.Redirect("index", "index", nil), nil
	}

	return ctx.Render("sign.html", map[string]any{"form": f.CreateView()})
}
