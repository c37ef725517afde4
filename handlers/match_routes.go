// handlers/match_routes.go
package handlers

import (
	"quiz-match-service/middleware"
	"quiz-match-service/models"
	"quiz-match-service/services"

	"github.com/gofiber/fiber/v2"
)

type MatchHandlers struct {
	Matches   *services.MatchService
	Lifecycle *services.MatchStateMachine
	Arbiter   *services.AnswerArbiter
	Hub       *services.EventHub
}

func SetupMatchRoutes(app *fiber.App, h *MatchHandlers, verifier *middleware.TokenVerifier) {
	// 🔐 Every match route needs a caller identity
	secured := app.Group("/", middleware.UserContextMiddleware(verifier))

	secured.Post("/matches", h.CreateMatch)
	secured.Get("/matches", h.ListMatches)
	secured.Post("/matches/join", h.JoinMatch)
	secured.Get("/matches/:id", h.GetMatch)
	secured.Get("/lobbies/:lobbyId/match", h.GetMatchByLobby)

	secured.Post("/matches/:id/start", h.StartMatch)
	secured.Post("/matches/:id/next", h.NextQuestion)
	secured.Post("/matches/:id/answer", h.SubmitAnswer)

	secured.Get("/matches/:id/result", h.GetResult)
	secured.Post("/matches/:id/result", h.SaveResult)
	secured.Get("/results", h.ListResults)

	secured.Get("/matches/:id/events", h.StreamEvents)
}

type createMatchRequest struct {
	HostName     string `json:"host_name"`
	NumQuestions int    `json:"num_questions"`
}

func (h *MatchHandlers) CreateMatch(c *fiber.Ctx) error {
	var req createMatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	m, err := h.Matches.Create(c.UserContext(), middleware.IdentityFrom(c), req.HostName, req.NumQuestions)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"match": fiber.Map{
			"match_id":      m.ID,
			"lobby_id":      m.LobbyID,
			"join_code":     m.JoinCode,
			"num_questions": len(m.Questions),
			"players":       m.Players,
			"status":        m.Status,
		},
	})
}

func (h *MatchHandlers) ListMatches(c *fiber.Ctx) error {
	page, err := h.Matches.ListMatches(c.UserContext(), services.MatchFilter{
		Status: models.MatchStatus(c.Query("status")),
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"matches": page.Matches,
		"pagination": fiber.Map{
			"total":    page.Total,
			"limit":    page.Limit,
			"offset":   page.Offset,
			"has_more": page.HasMore,
		},
	})
}

type joinMatchRequest struct {
	JoinCode string `json:"join_code"`
}

func (h *MatchHandlers) JoinMatch(c *fiber.Ctx) error {
	var req joinMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	m, added, err := h.Matches.Join(c.UserContext(), req.JoinCode, middleware.IdentityFrom(c))
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{"success": true, "match": m.Public()}
	if !added {
		resp["message"] = "You are already in this match"
	}
	return c.JSON(resp)
}

func (h *MatchHandlers) GetMatch(c *fiber.Ctx) error {
	v, err := h.Matches.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(v)
}

func (h *MatchHandlers) GetMatchByLobby(c *fiber.Ctx) error {
	v, err := h.Matches.GetByLobby(c.UserContext(), c.Params("lobbyId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(v)
}

func (h *MatchHandlers) StartMatch(c *fiber.Ctx) error {
	m, err := h.Lifecycle.StartAs(c.UserContext(), c.Params("id"), middleware.IdentityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "match": m.Public()})
}

func (h *MatchHandlers) NextQuestion(c *fiber.Ctx) error {
	out, err := h.Lifecycle.Advance(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	resp := fiber.Map{
		"success":          true,
		"match":            out.Match.Public(),
		"finished":         out.Finished,
		"already_finished": out.AlreadyFinished,
	}
	if out.Result != nil {
		resp["result"] = out.Result
	}
	return c.JSON(resp)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *MatchHandlers) SubmitAnswer(c *fiber.Ctx) error {
	var req answerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	out, err := h.Arbiter.Submit(c.UserContext(), c.Params("id"), middleware.IdentityFrom(c), req.Answer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

func (h *MatchHandlers) GetResult(c *fiber.Ctx) error {
	r, err := h.Matches.GetResult(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "result": r})
}

func (h *MatchHandlers) SaveResult(c *fiber.Ctx) error {
	r, created, err := h.Matches.EnsureResult(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"success": true, "created": created, "result": r})
}

func (h *MatchHandlers) ListResults(c *fiber.Ctx) error {
	page, err := h.Matches.ListResults(c.UserContext(), services.ResultFilter{
		UserID: c.Query("user_id"),
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"results": page.Results,
		"pagination": fiber.Map{
			"total":    page.Total,
			"limit":    page.Limit,
			"offset":   page.Offset,
			"has_more": page.HasMore,
		},
	})
}

func (h *MatchHandlers) StreamEvents(c *fiber.Ctx) error {
	if _, err := h.Matches.Get(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return h.Hub.StreamMatchEventsSSE(c)
}
