package handler

import (
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/admin"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/checkout"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/validation"
)

const maxBodySize = 1 << 20

const (
	msgInternal     = "something went wrong, please try again"
	msgPaymentRetry = "your order was saved but the payment prompt could not be sent, please try again"
)

// requestError is a malformed request, reported verbatim to the client.
type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{code: http.StatusBadRequest, msg: msg}
}

// decodeBody reads a JSON object from the request body, calling fn for
// every field.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &requestError{code: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return badRequest("could not read request body")
	}
	if err := jx.DecodeBytes(body).Obj(fn); err != nil {
		var rerr *requestError
		if errors.As(err, &rerr) {
			return rerr
		}
		return badRequest("invalid JSON body")
	}
	return nil
}

// optStr decodes a string that may be null.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

// writeJSON encodes the body with fn and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Bytes())))
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes {"code":...,"message":...} plus any extra fields.
func writeError(w http.ResponseWriter, code int, msg string, extra ...func(e *jx.Encoder)) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(code)
		e.FieldStart("message")
		e.Str(msg)
		for _, fn := range extra {
			fn(e)
		}
		e.ObjEnd()
	})
}

func fieldsMember(fields map[string]string) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		names := make([]string, 0, len(fields))
		for n := range fields {
			names = append(names, n)
		}
		sort.Strings(names)

		e.FieldStart("fields")
		e.ObjStart()
		for _, n := range names {
			e.FieldStart(n)
			e.Str(fields[n])
		}
		e.ObjEnd()
	}
}

// fail maps a domain error to its HTTP response. Unexpected errors are
// logged and hidden behind a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rerr *requestError
		verr *validation.Error
		perr *checkout.PaymentError
	)
	switch {
	case errors.As(err, &rerr):
		writeError(w, rerr.code, rerr.msg)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid input", fieldsMember(verr.Fields))
	case errors.As(err, &perr):
		writeError(w, http.StatusBadGateway, msgPaymentRetry, func(e *jx.Encoder) {
			e.FieldStart("orderId")
			e.Str(perr.OrderID)
		})
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, product.ErrInvalidCategory),
		errors.Is(err, order.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, product.ErrNotFound), errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, product.ErrOutOfStock), errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNoSession):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, admin.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
