package controller

import (
	"context"
	"errors"

	"market-insight-be/internal/dto"
	"market-insight-be/internal/mapper"
	"market-insight-be/internal/pkg/serverutils"
	"market-insight-be/internal/service"
	"market-insight-be/pkg/draftstore"

	"github.com/gofiber/fiber/v2"
)

type IStrategyController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Generate(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	SaveDraft(ctx *fiber.Ctx) error
	Edit(ctx *fiber.Ctx) error
	Implement(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	GetNotices(ctx *fiber.Ctx) error
	DismissNotice(ctx *fiber.Ctx) error
}

type strategyController struct {
	service       service.IStrategyService
	noticeService service.INoticeService
	mapper        *mapper.StrategyMapper
}

func NewStrategyController(service service.IStrategyService, noticeService service.INoticeService) IStrategyController {
	return &strategyController{
		service:       service,
		noticeService: noticeService,
		mapper:        mapper.NewStrategyMapper(),
	}
}

func (c *strategyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/strategy/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Post("/generate", c.Generate)
	h.Get("/notices", c.GetNotices)
	h.Delete("/notices/:id", c.DismissNotice)
	h.Put("/:clientId", c.SaveDraft)
	h.Patch("/:clientId", c.Edit)
	h.Post("/:clientId/implement", c.Implement)
	h.Delete("/:clientId", c.Delete)
}

// requestScope returns the owner and a context carrying the caller's token.
// UserContext outlives the pooled fasthttp context, so background writes may keep it.
func requestScope(ctx *fiber.Ctx) (string, context.Context) {
	owner, _ := ctx.Locals("user_id").(string)
	token, _ := ctx.Locals("auth_token").(string)
	return owner, draftstore.WithAuthToken(ctx.UserContext(), token)
}

func (c *strategyController) GetAll(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	res, err := c.service.Load(reqCtx, owner, ctx.Query("sort") == "savedAt")
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all strategies", res))
}

func (c *strategyController) Generate(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	var req dto.GenerateStrategiesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Generate(reqCtx, owner, &req)
	if err != nil {
		return err
	}
	msg := "Strategies generated"
	if res.UsingFallback {
		msg = "Generator unavailable, fallback strategies created"
	}
	return ctx.JSON(serverutils.SuccessResponse(msg, res))
}

func (c *strategyController) Create(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	var req dto.CreateStrategyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(reqCtx, owner, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Strategy created", res))
}

func (c *strategyController) SaveDraft(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	var req dto.UpdateStrategyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SaveDraft(reqCtx, owner, ctx.Params("clientId"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Strategy saved as draft", res))
}

func (c *strategyController) Edit(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	var req dto.UpdateStrategyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Edit(reqCtx, owner, ctx.Params("clientId"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Strategy updated", res))
}

func (c *strategyController) Implement(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	res, err := c.service.Implement(reqCtx, owner, ctx.Params("clientId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Strategy implemented", res))
}

func (c *strategyController) Delete(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	if err := c.service.Delete(reqCtx, owner, ctx.Params("clientId")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Strategy deleted", nil))
}

func (c *strategyController) GetNotices(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	res := c.mapper.ToNoticeResponses(c.noticeService.List(reqCtx, owner))
	return ctx.JSON(serverutils.SuccessResponse("Success get notices", res))
}

func (c *strategyController) DismissNotice(ctx *fiber.Ctx) error {
	owner, reqCtx := requestScope(ctx)

	if err := c.noticeService.Dismiss(reqCtx, owner, ctx.Params("id")); err != nil {
		if errors.Is(err, service.ErrNoticeNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Notice dismissed", nil))
}
