package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tatoodenda/backend/internal/otel"
)

func WriteJsonResponse(
	c context.Context,
	w http.ResponseWriter,
	header map[string]string,
	body map[string]interface{},
) {
	c, span := otel.Tracer.Start(c, "WriteJsonResponse")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str("tag", "WriteJsonResponse").Logger()

	w.Header().Add(HeaderContentType, ValueJson)
	for k, v := range header {
		w.Header().Add(k, v)
	}

	if v, ok := body["statusCode"]; ok {
		w.WriteHeader(v.(int))
	}

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		err = fmt.Errorf("failed encoding response body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
}

func WritePdfResponse(
	c context.Context,
	w http.ResponseWriter,
	filename string,
	pdf []byte,
) {
	c, span := otel.Tracer.Start(c, "WritePdfResponse")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str("tag", "WritePdfResponse").Logger()

	w.Header().Set(HeaderContentType, ValuePdf)
	w.Header().Set(HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	_, err := w.Write(pdf)
	if err != nil {
		err = fmt.Errorf("failed writing pdf response with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
}
