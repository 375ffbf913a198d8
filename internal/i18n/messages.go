package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyMissingPrompt      = "error.missing_prompt"
	KeyMissingSelection   = "error.missing_selection"
	KeyMissingSecondImage = "error.missing_second_image"
	KeyImageTooLarge      = "error.image_too_large"
	KeyUnsupportedFormat  = "error.unsupported_format"
	KeyUnknownTool        = "error.unknown_tool"
	KeyVIPRequired        = "error.vip_required"
	KeyInvalidSetting     = "error.invalid_setting"
	KeyRetry              = "error.retry"
	KeyCancelled          = "error.cancelled"
	KeyGeneric            = "error.generic"
	KeyTimeout            = "error.timeout"
	KeyInvalidVIPKey      = "error.invalid_vip_key"
	KeyRateLimited        = "error.rate_limited"
	KeyProgress           = "status.progress"
	KeySucceeded          = "status.succeeded"
	KeySaved              = "status.saved"
)

var entries = map[language.Tag]map[string]string{
	language.English: {
		KeyMissingPrompt:      "Please describe what you want this tool to do.",
		KeyMissingSelection:   "Please select the area you want to change first.",
		KeyMissingSecondImage: "This tool needs a second image.",
		KeyImageTooLarge:      "The image is too large. Please use a smaller file.",
		KeyUnsupportedFormat:  "This image format is not supported. Use PNG, JPEG, WebP or GIF.",
		KeyUnknownTool:        "This tool is not available.",
		KeyVIPRequired:        "This option requires a VIP session.",
		KeyInvalidSetting:     "One of the tool settings is not valid: %s.",
		KeyRetry:              "Something went wrong while processing your image. Please try again.",
		KeyCancelled:          "The transform was cancelled.",
		KeyGeneric:            "Something went wrong. Please try again.",
		KeyTimeout:            "Processing took too long. Please try again.",
		KeyInvalidVIPKey:      "This VIP key is not valid.",
		KeyRateLimited:        "Too many requests. Please wait a moment.",
		KeyProgress:           "Processing… %d%%",
		KeySucceeded:          "Done in %.1f seconds.",
		KeySaved:              "Saved to %s",
	},
	language.Arabic: {
		KeyMissingPrompt:      "يرجى وصف ما تريد أن تفعله هذه الأداة.",
		KeyMissingSelection:   "يرجى تحديد المنطقة التي تريد تغييرها أولاً.",
		KeyMissingSecondImage: "تحتاج هذه الأداة إلى صورة ثانية.",
		KeyImageTooLarge:      "الصورة كبيرة جداً. يرجى استخدام ملف أصغر.",
		KeyUnsupportedFormat:  "صيغة الصورة غير مدعومة. استخدم PNG أو JPEG أو WebP أو GIF.",
		KeyUnknownTool:        "هذه الأداة غير متاحة.",
		KeyVIPRequired:        "هذا الخيار يتطلب جلسة VIP.",
		KeyInvalidSetting:     "أحد إعدادات الأداة غير صالح: %s.",
		KeyRetry:              "حدث خطأ أثناء معالجة صورتك. يرجى المحاولة مرة أخرى.",
		KeyCancelled:          "تم إلغاء التحويل.",
		KeyGeneric:            "حدث خطأ ما. يرجى المحاولة مرة أخرى.",
		KeyTimeout:            "استغرقت المعالجة وقتاً طويلاً. يرجى المحاولة مرة أخرى.",
		KeyInvalidVIPKey:      "مفتاح VIP هذا غير صالح.",
		KeyRateLimited:        "طلبات كثيرة جداً. يرجى الانتظار قليلاً.",
		KeyProgress:           "جارٍ المعالجة… %d%%",
		KeySucceeded:          "تم خلال %.1f ثانية.",
		KeySaved:              "تم الحفظ في %s",
	},
}

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range entries {
		for key, text := range msgs {
			if err := b.SetString(tag, key, text); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}
	return b
}
