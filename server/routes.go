package main

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/techrules"
)

type handlers struct {
	store    techrules.Store
	exporter *techrules.Exporter
	logger   *slog.Logger
}

func register(app *fiber.App, h *handlers) {
	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", h.createSchema)
	app.Delete("/schema", h.dropSchema)

	// ── Graph (bulk) ──────────────────────────────────────────────────
	app.Post("/graphs", h.saveGraph)
	app.Get("/graphs/:id", h.getGraph)
	app.Delete("/graphs/:id", h.deleteGraph)
	app.Get("/graphs/:id/export", h.exportGraph)
	app.Post("/export", h.exportBody)
	app.Post("/seed/:id", h.seed)

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/graphs/:id/nodes", h.addNode)
	app.Get("/graphs/:id/nodes", h.listNodes)
	app.Get("/nodes/:id", h.getNode)
	app.Put("/nodes/:id", h.updateNode)
	app.Delete("/nodes/:id", h.deleteNode)

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/graphs/:id/edges", h.addEdge)
	app.Get("/graphs/:id/edges", h.listEdges)
	app.Get("/edges/:id", h.getEdge)
	app.Put("/edges/:id", h.updateEdge)
	app.Delete("/edges/:id", h.deleteEdge)
}

func (h *handlers) fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, techrules.ErrUnknownRef):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, techrules.ErrNodeNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	case errors.Is(err, techrules.ErrEdgeNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "edge not found"})
	case errors.Is(err, techrules.ErrGraphNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "graph not found"})
	case errors.Is(err, techrules.ErrDuplicateID):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}
	h.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}

// warnCycle logs when a graph has a cycle. Cyclic graphs are still stored
// and exported.
func (h *handlers) warnCycle(g *techrules.Graph) {
	if err := techrules.DetectCycle(g.Nodes, g.Edges); err != nil {
		h.logger.Warn("task graph contains a cycle", "graph", g.ID)
	}
}

func (h *handlers) createSchema(c fiber.Ctx) error {
	if err := h.store.CreateSchema(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (h *handlers) dropSchema(c fiber.Ctx) error {
	if err := h.store.DropSchema(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

func (h *handlers) saveGraph(c fiber.Ctx) error {
	var g techrules.Graph
	if err := c.Bind().JSON(&g); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	result, err := h.store.SaveGraph(c.Context(), &g)
	if err != nil {
		return h.fail(c, err)
	}
	h.warnCycle(result)
	return c.Status(201).JSON(result)
}

func (h *handlers) getGraph(c fiber.Ctx) error {
	g, err := h.store.GetGraph(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if g == nil {
		return h.fail(c, techrules.ErrGraphNotFound)
	}
	return c.JSON(g)
}

func (h *handlers) deleteGraph(c fiber.Ctx) error {
	if err := h.store.DeleteGraph(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

func (h *handlers) exportGraph(c fiber.Ctx) error {
	g, err := h.store.GetGraph(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if g == nil {
		return h.fail(c, techrules.ErrGraphNotFound)
	}
	h.warnCycle(g)
	return h.sendExport(c, h.exporter.Export(g))
}

func (h *handlers) exportBody(c fiber.Ctx) error {
	var g techrules.Graph
	if err := c.Bind().JSON(&g); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	return h.sendExport(c, h.exporter.Export(&g))
}

func (h *handlers) sendExport(c fiber.Ctx, doc *techrules.Document) error {
	if c.Query("download") != "" {
		c.Attachment(techrules.DefaultFileName)
	}
	var buf bytes.Buffer
	if err := techrules.Encode(&buf, doc); err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(buf.Bytes())
}

func (h *handlers) seed(c fiber.Ctx) error {
	g, err := h.store.SaveGraph(c.Context(), techrules.SeedGraph(c.Params("id")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(201).JSON(g)
}

func (h *handlers) addNode(c fiber.Ctx) error {
	var node techrules.Node
	if err := c.Bind().JSON(&node); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	id, err := h.store.AddNode(c.Context(), c.Params("id"), &node)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (h *handlers) listNodes(c fiber.Ctx) error {
	nodes, err := h.store.ListNodes(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(nodes)
}

func (h *handlers) getNode(c fiber.Ctx) error {
	n, err := h.store.GetNode(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if n == nil {
		return h.fail(c, techrules.ErrNodeNotFound)
	}
	return c.JSON(n)
}

func (h *handlers) updateNode(c fiber.Ctx) error {
	var node techrules.Node
	if err := c.Bind().JSON(&node); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	node.ID = c.Params("id")
	if err := h.store.UpdateNode(c.Context(), &node); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

func (h *handlers) deleteNode(c fiber.Ctx) error {
	if err := h.store.DeleteNode(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

func (h *handlers) addEdge(c fiber.Ctx) error {
	var edge techrules.Edge
	if err := c.Bind().JSON(&edge); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	id, err := h.store.AddEdge(c.Context(), c.Params("id"), &edge)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (h *handlers) listEdges(c fiber.Ctx) error {
	edges, err := h.store.ListEdges(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(edges)
}

func (h *handlers) getEdge(c fiber.Ctx) error {
	e, err := h.store.GetEdge(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if e == nil {
		return h.fail(c, techrules.ErrEdgeNotFound)
	}
	return c.JSON(e)
}

func (h *handlers) updateEdge(c fiber.Ctx) error {
	var edge techrules.Edge
	if err := c.Bind().JSON(&edge); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	edge.ID = c.Params("id")
	if err := h.store.UpdateEdge(c.Context(), &edge); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

func (h *handlers) deleteEdge(c fiber.Ctx) error {
	if err := h.store.DeleteEdge(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}
