package queries

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sanonone/kektorsnb/pkg/graph"
)

var (
	// ErrNotFound is returned by single-result operations whose search
	// yields no record.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParameter is returned for malformed or out-of-domain input,
	// always before the graph is touched.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrCoercion is returned when a stored property cannot be projected to
	// the expected type.
	ErrCoercion = graph.ErrCoercion
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateAddComment, AddCommentParams{})
	validate.RegisterStructValidation(validateAddPost, AddPostParams{})
}

// Validate checks operation parameters. Failures wrap ErrInvalidParameter.
func Validate(params any) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidParameter, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "lte", "max":
		return fmt.Sprintf("%s must be <= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", fe.Field(), fe.Param())
	case "reply_target":
		return "exactly one of replyToPostId and replyToCommentId must be set, the other must be -1"
	case "body":
		return "exactly one of imageFile and content must be set"
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}

// NoReply marks an unset reply target in AddCommentParams.
const NoReply int64 = -1

func validateAddComment(sl validator.StructLevel) {
	p := sl.Current().Interface().(AddCommentParams)
	if (p.ReplyToPostID == NoReply) == (p.ReplyToCommentID == NoReply) {
		sl.ReportError(p.ReplyToPostID, "ReplyToPostID", "replyToPostId", "reply_target", "")
	}
}

func validateAddPost(sl validator.StructLevel) {
	p := sl.Current().Interface().(AddPostParams)
	if (p.ImageFile == "") == (p.Content == "") {
		sl.ReportError(p.Content, "Content", "content", "body", "")
	}
}
