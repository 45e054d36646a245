// Package validation はリクエストペイロードの形状検証を提供する。
//
// 宣言済みの形状（validateタグ）に対して型・必須・範囲・列挙の制約を検査し、
// 違反した制約を最初の1件だけでなく全件のフィールドレベルエラーとして返す。
// 検証を通過するまで副作用のある処理へは進ませない。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teli-app/teli/internal/model"
)

// Validator はリクエスト構造体の検証器。
// プロセス内で1つ生成して使い回す（validator.Validateはスレッドセーフ）。
type Validator struct {
	validate *validator.Validate
}

// New はValidatorを生成する。
// エラー報告のフィールド名はGoのフィールド名ではなくjsonタグ名を使う。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct はreqの全フィールドを検証し、違反があればVALIDATION_FAILEDのAPIErrorを返す。
// エラーのFieldsには違反した制約の全リストが入る。
func (v *Validator) Struct(req any) *model.APIError {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError等、フィールドに帰着できない失敗
		return model.NewInvalidRequestError()
	}

	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: describe(fe),
		})
	}

	return model.NewValidationFailedError(fields)
}

// describe は制約ごとの人間向けメッセージを生成する。
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須フィールドです。"
	case "email":
		return "メールアドレスの形式が不正です。"
	case "min", "gte":
		return fmt.Sprintf("%s 以上を指定してください。", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s 以下を指定してください。", fe.Param())
	case "oneof":
		return fmt.Sprintf("次のいずれかを指定してください: %s", fe.Param())
	default:
		return fmt.Sprintf("制約 %s を満たしていません。", fe.Tag())
	}
}
