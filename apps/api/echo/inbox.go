package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/message"
)

func registerNotificationAPI(g *echo.Group, deps Deps) {
	svc := deps.NotificationSvc

	g.GET("", func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		page, err := bindPage(ctx)
		if err != nil {
			return err
		}
		ns, err := svc.List(ctx.Request().Context(), usr, page)
		if err != nil {
			return errors.Wrap(err, "listing notifications")
		}
		return ctx.JSON(http.StatusOK, ns)
	})

	g.PUT("/:id/read", func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		if _, err = svc.MarkRead(ctx.Request().Context(), usr, id); err != nil {
			return errors.Wrap(err, "marking notification read")
		}
		return ctx.JSON(http.StatusOK, messageResponse{Message: "Notification marked as read"})
	})
}

type messageApi struct {
	svc *message.Service
}

func registerMessageAPI(g *echo.Group, deps Deps) {
	api := messageApi{svc: deps.MessageSvc}

	g.POST("", api.send)
	g.GET("", api.query)
	g.GET("/:id", api.retrieve)
	g.DELETE("/:id", api.destroy)
	g.PUT("/:id/read", api.markRead)
	g.GET("/:id/file", api.download)
}

// send reads a multipart or urlencoded form with `receiver_id`, `content` and an optional `file`.
func (api *messageApi) send(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var nm message.NewMessage
	err = echo.FormFieldBinder(ctx).
		Int("receiver_id", &nm.ReceiverID).
		String("content", &nm.Content).
		BindError()
	if err != nil {
		return err
	}

	fh, f, err := formFile(ctx, "file")
	if err != nil {
		return err
	}
	var at *message.Attachment
	if f != nil {
		defer f.Close()
		at = &message.Attachment{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Content:     f,
		}
	}

	msg, err := api.svc.Send(ctx.Request().Context(), usr, nm, at)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	box := ctx.QueryParam("message_type")
	if box == "" {
		box = ctx.QueryParam("type")
	}
	msgs, err := api.svc.List(ctx.Request().Context(), usr, box, page)
	if err != nil {
		return errors.Wrap(err, "listing messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	msg, err := api.svc.Read(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "reading message")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = api.svc.MarkRead(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "marking message read")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Message marked as read"})
}

func (api *messageApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Message deleted successfully"})
}

func (api *messageApi) download(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	rc, ct, err := api.svc.Attachment(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "opening attachment")
	}
	defer rc.Close()

	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment")
	return ctx.Stream(http.StatusOK, ct, rc)
}
