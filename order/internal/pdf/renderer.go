package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"github.com/tatoodenda/backend/internal/log"
	"github.com/tatoodenda/backend/internal/otel"
	"github.com/tatoodenda/backend/order/internal/repository"
)

// Renderer produces the delivery note (albarán) for an order as an in-memory
// PDF. It never touches the filesystem.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(
	c context.Context,
	order repository.Order,
	lines []repository.OrderLine,
	user repository.User,
) ([]byte, error) {
	_, span := otel.Tracer.Start(c, "Renderer Render")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Renderer Render").
		Int64(log.KeyOrderID, order.ID).
		Logger()

	logger.Info().Msg("rendering delivery note")

	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "B", 18)
	doc.Text(20, 20, tr("Albarán de Pedido"))

	doc.SetFont("Helvetica", "", 12)
	doc.Text(20, 30, fmt.Sprintf("Pedido ID: %d", order.ID))
	nombre := user.Nombre
	if nombre == "" {
		nombre = "Desconocido"
	}
	doc.Text(20, 40, tr(fmt.Sprintf("Cliente: %s", nombre)))

	y := 50.0
	for _, line := range lines {
		if y > 270 {
			doc.AddPage()
			y = 20.0
		}
		name := line.Name
		if name == "" {
			name = "Producto"
		}
		doc.Text(20, y, tr(fmt.Sprintf(
			"Producto: %s x%d (%s€)",
			name,
			line.Quantity,
			line.Price.StringFixed(2),
		)))
		y += 10
	}

	if y > 270 {
		doc.AddPage()
		y = 20.0
	}
	doc.Text(20, y+10, tr(fmt.Sprintf("Total: %s€", order.Total.StringFixed(2))))

	var buf bytes.Buffer
	err := doc.Output(&buf)
	if err != nil {
		err = fmt.Errorf("failed rendering delivery note with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msgf("rendered delivery note bytes=%d", buf.Len())

	return buf.Bytes(), nil
}
