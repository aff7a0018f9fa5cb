package shipping

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/angelmondragon/returns-engine/pkg/enums"
)

var regionProvinces = []struct {
	region    enums.Region
	provinces []string
}{
	{enums.RegionNorth, []string{
		"Hà Nội", "Hải Phòng", "Quảng Ninh", "Thái Nguyên", "Lạng Sơn", "Cao Bằng",
		"Bắc Kạn", "Tuyên Quang", "Lào Cai", "Yên Bái", "Phú Thọ", "Vĩnh Phúc",
		"Bắc Ninh", "Bắc Giang", "Hải Dương", "Hưng Yên", "Thái Bình", "Hà Nam",
		"Nam Định", "Ninh Bình", "Hòa Bình", "Sơn La", "Điện Biên", "Lai Châu",
	}},
	{enums.RegionCentral, []string{
		"Thanh Hóa", "Nghệ An", "Hà Tĩnh", "Quảng Bình", "Quảng Trị", "Thừa Thiên Huế",
		"Đà Nẵng", "Quảng Nam", "Quảng Ngãi", "Bình Định", "Phú Yên", "Khánh Hòa",
		"Ninh Thuận", "Bình Thuận", "Kon Tum", "Gia Lai", "Đắk Lắk", "Đắk Nông",
		"Lâm Đồng",
	}},
	{enums.RegionSouth, []string{
		"TP. Hồ Chí Minh", "Bình Dương", "Đồng Nai", "Bà Rịa - Vũng Tàu", "Tây Ninh",
		"Bình Phước", "Long An", "Tiền Giang", "Bến Tre", "Trà Vinh", "Vĩnh Long",
		"Đồng Tháp", "An Giang", "Kiên Giang", "Cần Thơ", "Hậu Giang", "Sóc Trăng",
		"Bạc Liêu", "Cà Mau",
	}},
}

// foldAccents lowercases s and strips Vietnamese diacritics, including đ.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.ReplaceAll(folded, "đ", "d")
}

// Normalize folds accents and drops every character that is not a-z or 0-9,
// so "Quận 1" and "quan1" compare equal.
func Normalize(s string) string {
	folded := foldAccents(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RegionOf maps a province name onto its region. Names match when either
// contains the other after folding accents; unknown or blank names are SOUTH.
func RegionOf(province string) enums.Region {
	needle := strings.TrimSpace(foldAccents(province))
	if needle == "" {
		return enums.RegionSouth
	}
	for _, group := range regionProvinces {
		for _, candidate := range group.provinces {
			folded := foldAccents(candidate)
			if strings.Contains(needle, folded) || strings.Contains(folded, needle) {
				return group.region
			}
		}
	}
	return enums.RegionSouth
}
