package handlers

import (
	stderrors "errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

var (
	validate = validator.New()
	uni      = ut.New(en.New(), en.New(), ar.New())
)

var arabicMessages = map[string]string{
	"required": "الحقل {0} مطلوب",
	"email":    "الحقل {0} يجب أن يكون بريدا إلكترونيا صحيحا",
	"min":      "الحقل {0} قصير جدا",
	"max":      "الحقل {0} طويل جدا",
	"oneof":    "قيمة الحقل {0} غير مسموحة",
	"datetime": "صيغة الحقل {0} غير صحيحة",
	"gte":      "قيمة الحقل {0} صغيرة جدا",
	"lte":      "قيمة الحقل {0} كبيرة جدا",
}

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enTrans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, enTrans)

	arTrans, _ := uni.GetTranslator("ar")
	for tag, msg := range arabicMessages {
		_ = validate.RegisterTranslation(tag, arTrans,
			func(ut ut.Translator) error { return ut.Add(tag, msg, true) },
			func(ut ut.Translator, fe validator.FieldError) string {
				t, err := ut.T(fe.Tag(), fe.Field())
				if err != nil {
					return fe.Error()
				}
				return t
			})
	}
}

// parseAndValidate decodes the body into req and validates it. On failure it
// writes the 400 response and returns false.
func parseAndValidate(c *fiber.Ctx, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": fieldErrors(err, requestLang(c)),
		})
	}
	return true, nil
}

func requestLang(c *fiber.Ctx) string {
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderAcceptLanguage)), "ar") {
		return "ar"
	}
	return "en"
}

func fieldErrors(err error, lang string) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	trans, _ := uni.GetTranslator(lang)
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(trans)
	}
	return out
}
