package i18n

// Supported locales
const (
	English = "en"
	Arabic  = "ar"
)

// DefaultLocale is used when a key or locale is missing
const DefaultLocale = English

// languageNames maps each supported locale to its own display name
var languageNames = map[string]string{
	English: "English",
	Arabic:  "العربية",
}

var translations = map[string]map[string]string{
	English: {
		"title":        "Peds Critical Care Calculator",
		"subtitle":     "Calculate medication dosages and airway equipment sizes based on patient weight and age",
		"weight":       "Weight",
		"weight_unit":  "Unit",
		"age":          "Age",
		"age_unit":     "Unit",
		"calculate":    "Calculate Dosages",
		"patient_info": "Patient Information",
		"years":        "years",
		"months":       "months",
		"kg":           "kg",
		"lbs":          "lbs",
		"medication":   "Medication",
		"dosage":       "Dosage",
		"route":        "Route/Notes",
		"notes":        "Additional Notes",
		"weight_error": "Please enter a valid weight greater than 0",
		"age_error":    "Please enter a valid age",
		"unit_error":   "Please choose a valid unit",
		"rate_error":   "The selected rate is not one of the offered options",

		"select_rate":           "Rate",
		"infusion_rate":         "Infusion rate",
		"ml_per_hr":             "mL/h",
		"preparation":           "Add %s %s to %s mL NS",
		"unsupported_unit":      "Unsupported unit, rate cannot be computed",
		"concentration_derived": "No standard concentration configured. Rate shown is a placeholder, verify the preparation",

		"airway_defib":      "AIRWAY & DEFIB",
		"intubation":        "INTUBATION MEDICATIONS",
		"emergencies":       "EMERGENCIES",
		"inotropes":         "INOTROPES",
		"sedation":          "SEDATION & PARALYSIS",
		"antihypertensives": "ANTI-HYPERTENSIVES",
		"antiarrhythmics":   "ANTI-ARRHYTHMICS",
		"others":            "OTHERS",
	},
	Arabic: {
		"title":        "حاسبة العناية المركزة للأطفال",
		"subtitle":     "احسب جرعات الأدوية وأحجام معدات مجرى الهواء بناءً على وزن وعمر المريض",
		"weight":       "الوزن",
		"weight_unit":  "الوحدة",
		"age":          "العمر",
		"age_unit":     "الوحدة",
		"calculate":    "احسب الجرعات",
		"patient_info": "معلومات المريض",
		"years":        "سنوات",
		"months":       "أشهر",
		"kg":           "كغ",
		"lbs":          "رطل",
		"medication":   "الدواء",
		"dosage":       "الجرعة",
		"route":        "طريقة الإعطاء/ملاحظات",
		"notes":        "ملاحظات إضافية",
		"weight_error": "يرجى إدخال وزن صحيح أكبر من صفر",
		"age_error":    "يرجى إدخال عمر صحيح",
		"unit_error":   "يرجى اختيار وحدة صحيحة",
		"rate_error":   "المعدل المختار ليس من الخيارات المتاحة",

		"select_rate":           "المعدل",
		"infusion_rate":         "معدل التسريب",
		"ml_per_hr":             "مل/ساعة",
		"preparation":           "أضف %s %s إلى %s مل من المحلول الملحي",
		"unsupported_unit":      "وحدة غير مدعومة، لا يمكن حساب المعدل",
		"concentration_derived": "لا يوجد تركيز قياسي محدد. المعدل المعروض تقديري، تحقق من التحضير",

		"airway_defib":      "الممرات الهوائية وإزالة الرجفان",
		"intubation":        "أدوية التنبيب",
		"emergencies":       "حالات الطوارئ",
		"inotropes":         "الأدوية المقوية للقلب",
		"sedation":          "التهدئة والشلل",
		"antihypertensives": "خافضات ضغط الدم",
		"antiarrhythmics":   "مضادات اضطراب النظم",
		"others":            "أخرى",
	},
}
