package hijri

import (
	"fmt"
	"strconv"
	"strings"
)

var monthsEN = [...]string{
	"", "Muharram", "Safar", "Rabi al-Awwal", "Rabi al-Thani",
	"Jumada al-Ula", "Jumada al-Akhira", "Rajab", "Sha'ban",
	"Ramadan", "Shawwal", "Dhu al-Qi'da", "Dhu al-Hijja",
}

var monthsAR = [...]string{
	"", "مُحَرَّم", "صَفَر", "رَبِيع الأَوَّل", "رَبِيع الثَّانِي",
	"جُمَادَى الأُولَى", "جُمَادَى الآخِرَة", "رَجَب", "شَعْبَان",
	"رَمَضَان", "شَوَّال", "ذُو القَعْدَة", "ذُو الحِجَّة",
}

// MonthName returns the month name in "en" or "ar"; unknown languages get English.
func MonthName(month int, lang string) string {
	if month < 1 || month > 12 {
		return ""
	}
	if lang == "ar" {
		return monthsAR[month]
	}
	return monthsEN[month]
}

// ArabicDigits rewrites ASCII digits as Arabic-Indic digits.
func ArabicDigits(n int) string {
	var b strings.Builder
	for _, r := range strconv.Itoa(n) {
		if r >= '0' && r <= '9' {
			b.WriteRune('٠' + (r - '0'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatDate renders d as "7 Ramadan 1446 AH", or in Arabic with
// Arabic-Indic digits when lang is "ar".
func FormatDate(d Date, lang string) string {
	if lang == "ar" {
		return fmt.Sprintf("%s %s %s هـ", ArabicDigits(d.Day), MonthName(d.Month, "ar"), ArabicDigits(d.Year))
	}
	return fmt.Sprintf("%d %s %d AH", d.Day, MonthName(d.Month, "en"), d.Year)
}
