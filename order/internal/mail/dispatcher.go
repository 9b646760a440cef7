package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"

	inErrors "github.com/tatoodenda/backend/internal/errors"
	"github.com/tatoodenda/backend/internal/log"
	"github.com/tatoodenda/backend/internal/otel"
	"github.com/tatoodenda/backend/order/internal/repository"
)

// Sender is the transport seam; *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(c context.Context, messages ...*mail.Msg) error
}

// Dispatcher emails the delivery note to the order's customer. Tolerance to a
// send failure is the caller's call: order creation downgrades the error to an
// emailSent=false flag, resending propagates it.
type Dispatcher struct {
	sender   Sender
	from     string
	fromName string
}

func NewDispatcher(sender Sender, from string, fromName string) *Dispatcher {
	return &Dispatcher{sender: sender, from: from, fromName: fromName}
}

func (d *Dispatcher) SendDeliveryNote(
	c context.Context,
	order repository.Order,
	lines []repository.OrderLine,
	user repository.User,
	pdf []byte,
) error {
	c, span := otel.Tracer.Start(c, "Dispatcher SendDeliveryNote")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Dispatcher SendDeliveryNote").
		Int64(log.KeyOrderID, order.ID).
		Str(log.KeyEmail, user.Email).
		Logger()

	if user.Email == "" {
		err := inErrors.ErrUserNoEmail
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "building email body").Logger()
	logger.Info().Msg("building email body")
	body, err := buildHTMLBody(order, lines, user)
	if err != nil {
		err = fmt.Errorf("failed building email body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("built email body")

	logger = logger.With().Str(log.KeyProcess, "building email message").Logger()
	logger.Info().Msg("building email message")
	msg := mail.NewMsg()
	if err := msg.FromFormat(d.fromName, d.from); err != nil {
		err = fmt.Errorf("failed setting email sender with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if err := msg.To(user.Email); err != nil {
		err = fmt.Errorf("failed setting email recipient with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	msg.Subject(fmt.Sprintf("Confirmación de Pedido #%d - %s", order.ID, d.fromName))
	msg.SetBodyString(mail.TypeTextHTML, body)
	err = msg.AttachReader(
		fmt.Sprintf("Albaran_Pedido_%d.pdf", order.ID),
		bytes.NewReader(pdf),
		mail.WithFileContentType(mail.ContentType("application/pdf")),
	)
	if err != nil {
		err = fmt.Errorf("failed attaching delivery note with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("built email message")

	logger = logger.With().Str(log.KeyProcess, "sending email").Logger()
	logger.Info().Msg("sending email")
	err = d.sender.DialAndSendWithContext(c, msg)
	if err != nil {
		err = fmt.Errorf("failed sending delivery note email with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("sent email")

	return nil
}

type emailLine struct {
	Nombre   string
	Color    string
	Cant     int32
	Precio   string
	Subtotal string
}

type emailData struct {
	Tienda    string
	Nombre    string
	OrderID   int64
	Fecha     string
	Total     string
	Lines     []emailLine
	Direccion string
	Ciudad    string
	CP        string
	Year      int
}

func buildHTMLBody(
	order repository.Order,
	lines []repository.OrderLine,
	user repository.User,
) (string, error) {
	nombre := user.Nombre
	if nombre == "" {
		nombre = "Cliente"
	}
	direccion := user.Direccion
	if direccion == "" {
		direccion = "Dirección no especificada"
	}

	data := emailData{
		Tienda:    "TatooDenda",
		Nombre:    nombre,
		OrderID:   order.ID,
		Fecha:     order.Fecha.Format("02/01/2006"),
		Total:     order.Total.StringFixed(2),
		Direccion: direccion,
		Ciudad:    user.Ciudad,
		CP:        user.CP,
		Year:      time.Now().Year(),
	}
	for _, line := range lines {
		name := line.Name
		if name == "" {
			name = "Producto"
		}
		color := line.Color
		if color == "" {
			color = "N/A"
		}
		data.Lines = append(data.Lines, emailLine{
			Nombre:   name,
			Color:    color,
			Cant:     line.Quantity,
			Precio:   line.Price.StringFixed(2),
			Subtotal: line.Price.Mul(decimal.NewFromInt32(line.Quantity)).StringFixed(2),
		})
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, data)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

var bodyTemplate = template.Must(template.New("albaran").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
  <meta charset="UTF-8">
  <title>Confirmación de Pedido</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
  <table width="600" cellpadding="0" cellspacing="0" align="center" style="background-color: white; border-radius: 8px;">
    <tr>
      <td style="background-color: #52667a; padding: 30px 20px; text-align: center;">
        <h1 style="color: white; margin: 0; font-size: 28px;">{{.Tienda}}</h1>
        <p style="color: white; margin: 10px 0 0 0; font-size: 14px;">Confirmación de Pedido</p>
      </td>
    </tr>
    <tr>
      <td style="padding: 30px 20px 20px 20px;">
        <h2 style="color: #333; margin: 0 0 15px 0;">¡Hola {{.Nombre}}!</h2>
        <p style="color: #666; line-height: 1.6; margin: 0;">
          Gracias por tu compra. Hemos recibido tu pedido correctamente y lo estamos procesando.
        </p>
      </td>
    </tr>
    <tr>
      <td style="padding: 0 20px 20px 20px;">
        <table width="100%" cellpadding="10" style="background-color: #f9f9f9; border-radius: 5px;">
          <tr>
            <td style="color: #666;"><strong>Número de Pedido:</strong></td>
            <td style="text-align: right; color: #52667a; font-weight: bold;">#{{.OrderID}}</td>
          </tr>
          <tr>
            <td style="color: #666;"><strong>Fecha:</strong></td>
            <td style="text-align: right; color: #333;">{{.Fecha}}</td>
          </tr>
          <tr>
            <td style="color: #666;"><strong>Total:</strong></td>
            <td style="text-align: right; color: #52667a; font-weight: bold; font-size: 18px;">€{{.Total}}</td>
          </tr>
        </table>
      </td>
    </tr>
    <tr>
      <td style="padding: 0 20px 20px 20px;">
        <h3 style="color: #333; margin: 0 0 15px 0;">Detalle del Pedido</h3>
        <table width="100%" cellpadding="0" cellspacing="0" style="border: 1px solid #eee; border-radius: 5px;">
          <thead>
            <tr style="background-color: #52667a; color: white;">
              <th style="padding: 12px; text-align: left;">Producto</th>
              <th style="padding: 12px; text-align: center;">Color</th>
              <th style="padding: 12px; text-align: center;">Cant.</th>
              <th style="padding: 12px; text-align: right;">Precio</th>
              <th style="padding: 12px; text-align: right;">Subtotal</th>
            </tr>
          </thead>
          <tbody>
            {{range .Lines}}<tr>
              <td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Nombre}}</td>
              <td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Color}}</td>
              <td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Cant}}</td>
              <td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">€{{.Precio}}</td>
              <td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right; font-weight: bold;">€{{.Subtotal}}</td>
            </tr>
            {{end}}
          </tbody>
        </table>
      </td>
    </tr>
    <tr>
      <td style="padding: 0 20px 20px 20px;">
        <h3 style="color: #333; margin: 0 0 15px 0;">Dirección de Envío</h3>
        <div style="background-color: #f9f9f9; padding: 15px; border-radius: 5px; color: #666; line-height: 1.6;">
          <strong>{{.Nombre}}</strong><br>
          {{.Direccion}}<br>
          {{.Ciudad}}, {{.CP}}
        </div>
      </td>
    </tr>
    <tr>
      <td style="padding: 0 20px 30px 20px;">
        <div style="background-color: #e8f4f8; border-left: 4px solid #52667a; padding: 15px; border-radius: 3px;">
          <p style="margin: 0; color: #333;">
            <strong>Albarán adjunto:</strong> Encontrarás el albarán detallado en formato PDF adjunto a este correo.
          </p>
        </div>
      </td>
    </tr>
    <tr>
      <td style="background-color: #f9f9f9; padding: 20px; text-align: center; border-top: 1px solid #eee;">
        <p style="margin: 0; color: #999; font-size: 12px;">
          © {{.Year}} {{.Tienda}} - Todos los derechos reservados
        </p>
      </td>
    </tr>
  </table>
</body>
</html>
`))
