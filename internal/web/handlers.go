package web

import (
	"bytes"
	"image"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/ironsheep/snapsearch/internal/imaging"
	"github.com/ironsheep/snapsearch/internal/session"
)

// CropRequest is the body of POST /api/crop/:id. The rectangle is in the
// coordinates of the image after rotation.
type CropRequest struct {
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Angle float64 `json:"angle"`
}

// FocusRequest is the body of POST /api/focus: a tap in a preview of the
// given size.
type FocusRequest struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	ViewWidth  int `json:"view_width"`
	ViewHeight int `json:"view_height"`
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error":   session.Kind(err),
		"message": err.Error(),
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	st, err := s.sess.Status(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(st)
}

func (s *Server) handleCapture(c *fiber.Ctx) error {
	info, err := s.sess.Capture(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(info)
}

func (s *Server) handleBeginCrop(c *fiber.Ctx) error {
	req, err := s.sess.BeginCrop(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(req)
}

func (s *Server) handleCompleteCrop(c *fiber.Ctx) error {
	var req CropRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad-request",
			"message": err.Error(),
		})
	}

	rect := image.Rect(req.X1, req.Y1, req.X2, req.Y2)
	if req.X1 >= req.X2 || req.Y1 >= req.Y2 {
		// image.Rect canonicalizes; reject inverted corners explicitly.
		rect = image.Rectangle{}
	}

	info, err := s.sess.CompleteCrop(c.UserContext(), c.Params("id"), rect, req.Angle)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(info)
}

func (s *Server) handleCancelCrop(c *fiber.Ctx) error {
	if err := s.sess.CancelCrop(c.UserContext(), c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	res, err := s.sess.Search(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleClear(c *fiber.Ctx) error {
	if err := s.sess.Clear(c.UserContext()); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleFocus(c *fiber.Ctx) error {
	var req FocusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad-request",
			"message": err.Error(),
		})
	}

	view := image.Pt(req.ViewWidth, req.ViewHeight)
	if view.X <= 0 || view.Y <= 0 {
		view = image.Pt(s.opts.PreviewWidth, s.opts.PreviewHeight)
	}
	if err := s.sess.Focus(c.UserContext(), image.Pt(req.X, req.Y), view); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// handleOpen accepts an image either as multipart field "image" or as the
// raw request body.
func (s *Server) handleOpen(c *fiber.Ctx) error {
	var r io.Reader
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return s.fail(c, err)
		}
		defer f.Close()
		r = f
	} else {
		r = bytes.NewReader(c.Body())
	}

	info, err := s.sess.Open(c.UserContext(), r)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(info)
}

func (s *Server) handleImage(c *fiber.Ctx) error {
	img, info, err := s.sess.Image(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}

	data, err := imaging.EncodeJPEG(img, s.opts.JPEGQuality)
	if err != nil {
		return s.fail(c, err)
	}
	c.Set("X-Capture-Id", info.ID)
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}
