package handlers

import (
	"errors"

	"shelflife/internal/repositories"
	"shelflife/internal/services"
)

// User-facing page messages.
const (
	msgProductAdded      = "تم إضافة المنتج بنجاح"
	msgProductDeleted    = "تم حذف المنتج بنجاح"
	msgNameRequired      = "الرجاء إدخال اسم المنتج"
	msgNameTooLong       = "اسم المنتج طويل جدًا (الحد الأقصى 100 حرف)"
	msgInvalidDates      = "خطأ في تنسيق التواريخ. الرجاء استخدام تنسيق صحيح"
	msgDateTooFar        = "التاريخ بعيد جدًا في المستقبل"
	msgExpiryNotAfter    = "تاريخ الانتهاء يجب أن يكون بعد تاريخ الإنتاج"
	msgAddFailed         = "حدث خطأ أثناء إضافة المنتج"
	msgDeleteFailed      = "حدث خطأ أثناء حذف المنتج"
	msgListFailed        = "حدث خطأ أثناء جلب قائمة المنتجات"
	msgProductNotFound   = "المنتج غير موجود"
	msgExportFailed      = "حدث خطأ أثناء تصدير المنتجات"
	msgUnexpectedFailure = "حدث خطأ غير متوقع"
	msgFormExpired       = "انتهت صلاحية النموذج. الرجاء المحاولة مرة أخرى"
)

// createErrorMessage maps a CreateProduct error to the message shown to the user.
func createErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNameRequired):
		return msgNameRequired
	case errors.Is(err, services.ErrNameTooLong):
		return msgNameTooLong
	case errors.Is(err, services.ErrDateTooFar):
		return msgDateTooFar
	case errors.Is(err, services.ErrInvalidDates):
		return msgInvalidDates
	case errors.Is(err, services.ErrExpiryNotAfterProduction):
		return msgExpiryNotAfter
	case errors.Is(err, services.ErrValidation):
		return msgInvalidDates
	default:
		return msgAddFailed
	}
}

func deleteErrorMessage(err error) string {
	if errors.Is(err, repositories.ErrProductNotFound) {
		return msgProductNotFound
	}
	return msgDeleteFailed
}
