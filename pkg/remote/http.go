package remote

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-picam/pkg/camera"
	"github.com/teslashibe/go-picam/pkg/command"
	"github.com/teslashibe/go-picam/pkg/hub"
)

// CommandRequest is the JSON body of POST /api/command. Command is either a
// command name ("zoom-in") or a key line ("w").
type CommandRequest struct {
	Command string `json:"command" form:"command"`
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "picam",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/capabilities", s.handleCapabilities)
	api.Post("/command", s.handleCommand)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/command", websocket.New(s.handleCommandWS))
	app.Get("/ws/preview", websocket.New(s.handlePreviewWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	return app
}

// resolveLine turns a request value into a command line. It accepts a command
// name or a single key; anything else is None.
func resolveLine(v string) (string, command.Code) {
	word := strings.ToLower(strings.TrimSpace(v))
	if c, ok := command.FromName(word); ok {
		return c.Line(), c
	}
	switch len(word) {
	case 0:
		return "\n", command.Confirm
	case 1:
		c := command.Parse(word)
		return c.Line(), c
	}
	return "", command.None
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

func (s *Server) handleCapabilities(c *fiber.Ctx) error {
	return c.JSON(camera.Capabilities())
}

func (s *Server) handleCommand(c *fiber.Ctx) error {
	var req CommandRequest
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	} else {
		req.Command = string(c.Body())
	}

	line, code := resolveLine(req.Command)
	if code == command.None {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown command: " + strings.TrimSpace(req.Command),
		})
	}
	s.Submit(line)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"command": code.String()})
}

func (s *Server) handleCommandWS(conn *websocket.Conn) {
	client := hub.NewClient(s.commandHub, conn, func(_ *hub.Client, data []byte) {
		if line, code := resolveLine(string(data)); code != command.None {
			s.Submit(line)
		}
	})
	if client != nil {
		client.Run()
	}
}

func (s *Server) handlePreviewWS(conn *websocket.Conn) {
	if client := hub.NewClient(s.previewHub, conn, nil); client != nil {
		client.Run()
	}
}

func (s *Server) handleStatusWS(conn *websocket.Conn) {
	if client := hub.NewClient(s.statusHub, conn, nil); client != nil {
		client.Run()
	}
}
