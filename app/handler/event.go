package handler

import (
	"errors"
	"fmt"

	financebladi "financebladi"

	"github.com/gofiber/fiber/v2"
)

type EventHandler struct {
	er EventRetriever
	el EventLauncher
	ec EventStatusChanger
}

func NewEventHandler(er EventRetriever, el EventLauncher, ec EventStatusChanger) *EventHandler {
	return &EventHandler{
		er: er,
		el: el,
		ec: ec,
	}
}

func (h *EventHandler) InitRoute(app *fiber.App) {

	router := app.Group("/events")
	router.Get("/", h.Events)
	router.Get("/:id<int>", h.Event)
	router.Post("/switch", h.SwitchEvent)
	router.Post("/launch", h.LaunchEvent)
}

func (h *EventHandler) Events(c *fiber.Ctx) error {

	events := h.er.Events()

	eventResponse := make([]EventResponse, 0, len(events))
	for _, e := range events {
		eventResponse = append(eventResponse, toEventResponse(e))
	}

	return c.Status(fiber.StatusOK).JSON(eventResponse)
}

func (h *EventHandler) Event(c *fiber.Ctx) error {

	id, err := c.ParamsInt("id")
	if err != nil {
		return fmt.Errorf("id 파싱 시 오류 발생. %w", err)
	}

	e := h.find(uint(id))
	if e == nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%s. Id : %d", financebladi.ErrUnknownEvent, id))
	}
	return c.Status(fiber.StatusOK).JSON(toEventResponse(e))
}

func (h *EventHandler) SwitchEvent(c *fiber.Ctx) error {

	param := EventStatusChangeRequest{}
	err := c.BodyParser(&param)
	if err != nil {
		return fmt.Errorf("파라미터 BodyParse 시 오류 발생. %w", err)
	}

	err = validCheck(&param)
	if err != nil {
		return fmt.Errorf("파라미터 유효성 검사 시 오류 발생. %w", err)
	}

	err = h.ec.SetEventStatus(param.Id, param.Active)
	if err != nil {
		return eventError("상태 변경", err)
	}

	return c.Status(fiber.StatusOK).JSON(toEventResponse(h.find(param.Id)))
}

// 실행이 끝난 뒤 응답. 일일 배치는 수 분 걸릴 수 있음
func (h *EventHandler) LaunchEvent(c *fiber.Ctx) error {

	var param EventLaunchRequest
	err := c.BodyParser(&param)
	if err != nil {
		return fmt.Errorf("파라미터 BodyParse 시 오류 발생. %w", err)
	}

	err = validCheck(&param)
	if err != nil {
		return fmt.Errorf("파라미터 유효성 검사 시 오류 발생. %w", err)
	}

	err = h.el.LaunchEvent(param.Id)
	if err != nil {
		return eventError("event Launch", err)
	}

	return c.Status(fiber.StatusOK).SendString(fmt.Sprintf("event %d 실행 완료", param.Id))
}

func (h *EventHandler) find(id uint) *financebladi.EnrolledEvent {
	for _, e := range h.er.Events() {
		if e.Id == id {
			return e
		}
	}
	return nil
}

func eventError(action string, err error) error {
	switch {
	case errors.Is(err, financebladi.ErrUnknownEvent):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, financebladi.ErrInactiveEvent):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return fmt.Errorf("%s 시 오류 발생. %w", action, err)
}

func toEventResponse(e *financebladi.EnrolledEvent) EventResponse {
	return EventResponse{
		Id:          e.Id,
		Title:       e.Title,
		Description: e.Description,
		Schedule:    e.Schedule,
		Active:      e.IsActive,
	}
}
