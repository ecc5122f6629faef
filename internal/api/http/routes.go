package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
	"github.com/i474232898/yr-meteogram/internal/store"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *meteogram.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "yr-meteogram",
			"entries": service.Health(),
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/flows/user", func(c *fiber.Ctx) error {
		return c.JSON(service.Flow().StepUser(c.UserContext(), nil))
	})

	v1.Post("/flows/user", func(c *fiber.Ctx) error {
		var in meteogram.UserInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		res := service.SubmitUser(c.UserContext(), &in)
		return c.Status(flowStatus(res)).JSON(newFlowResponse(res))
	})

	v1.Get("/entries", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"entries": service.Entries(),
		})
	})

	v1.Get("/entries/:id", func(c *fiber.Ctx) error {
		entry, err := service.Entry(c.Params("id"))
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(entry)
	})

	v1.Delete("/entries/:id", func(c *fiber.Ctx) error {
		if err := service.RemoveEntry(c.Params("id")); err != nil {
			return lookupError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/entries/:id/options", func(c *fiber.Ctx) error {
		res, err := service.SubmitOptions(c.Params("id"), nil)
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(res)
	})

	v1.Post("/entries/:id/options", func(c *fiber.Ctx) error {
		var in meteogram.Flags
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		res, err := service.SubmitOptions(c.Params("id"), &in)
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(newFlowResponse(res))
	})

	v1.Get("/entries/:id/entity", func(c *fiber.Ctx) error {
		entity, err := service.Entity(c.Params("id"))
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(newEntityState(entity))
	})

	v1.Get("/entries/:id/image", func(c *fiber.Ctx) error {
		entity, err := service.Entity(c.Params("id"))
		if err != nil {
			return lookupError(err)
		}

		// Nothing fetched yet is not an error.
		data := entity.Image()
		if data == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}

		if ts := entity.ImageLastUpdated(); ts != nil {
			if since := c.Get(fiber.HeaderIfModifiedSince); since != "" {
				if t, err := http.ParseTime(since); err == nil && !ts.Truncate(time.Second).After(t) {
					return c.SendStatus(fiber.StatusNotModified)
				}
			}
			c.Set(fiber.HeaderLastModified, ts.UTC().Format(http.TimeFormat))
		}
		c.Set(fiber.HeaderContentType, entity.ContentType())
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Send(data)
	})

	v1.Post("/entries/:id/refresh", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := service.Refresh(c.UserContext(), id); err != nil {
			var updateErr *meteogram.UpdateFailedError
			if errors.As(err, &updateErr) {
				return fiber.NewError(fiber.StatusBadGateway, updateErr.Error())
			}
			return lookupError(err)
		}

		entity, err := service.Entity(id)
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(newEntityState(entity))
	})
}

// flowResponse adds the created entry's id to a flow result.
type flowResponse struct {
	meteogram.FlowResult
	EntryID string `json:"entry_id,omitempty"`
}

func newFlowResponse(res meteogram.FlowResult) flowResponse {
	out := flowResponse{FlowResult: res}
	if res.Entry != nil {
		out.EntryID = res.Entry.ID
	}
	return out
}

func flowStatus(res meteogram.FlowResult) int {
	switch res.Type {
	case meteogram.FlowResultCreateEntry:
		return fiber.StatusCreated
	case meteogram.FlowResultAbort:
		return fiber.StatusConflict
	default:
		return fiber.StatusOK
	}
}

type entityAttributes struct {
	FriendlyName     string     `json:"friendly_name"`
	ContentType      string     `json:"content_type"`
	ImageLastUpdated *time.Time `json:"image_last_updated"`
}

// entityState mirrors what a home automation host shows for an image entity.
type entityState struct {
	EntityID   string               `json:"entity_id"`
	UniqueID   string               `json:"unique_id"`
	State      string               `json:"state"`
	Attributes entityAttributes     `json:"attributes"`
	DeviceInfo meteogram.DeviceInfo `json:"device_info"`
}

func newEntityState(e *meteogram.ImageEntity) entityState {
	updated := e.ImageLastUpdated()
	state := "unknown"
	if updated != nil {
		state = updated.UTC().Format(time.RFC3339)
	}
	return entityState{
		EntityID: e.EntityID(),
		UniqueID: e.UniqueID(),
		State:    state,
		Attributes: entityAttributes{
			FriendlyName:     e.Name(),
			ContentType:      e.ContentType(),
			ImageLastUpdated: updated,
		},
		DeviceInfo: e.DeviceInfo(),
	}
}

func lookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, meteogram.ErrNotLoaded) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
