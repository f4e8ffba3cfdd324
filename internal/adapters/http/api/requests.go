package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/trev125/FlickPick/internal/domain/model"
)

const maxBodyBytes = 64 << 10

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type createRequest struct {
	Size int `json:"size" validate:"gte=0,lte=500"`
}

type joinRequest struct {
	UserID string `json:"userId" validate:"omitempty,max=64"`
	Name   string `json:"name" validate:"max=64"`
}

type preferencesRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
	model.PreferenceSet
}

type voteRequest struct {
	UserID  string `json:"userId" validate:"required,max=64"`
	MovieID string `json:"movieId" validate:"required"`
	Vote    *bool  `json:"vote" validate:"required"`
}

// decode reads a JSON body into dst and validates it. An empty body leaves
// dst at its zero value.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := getValidator().Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
