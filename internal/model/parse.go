package model

import (
	"fmt"
	"strings"
)

// ParseGender 解析性别枚举，大小写不敏感。
func ParseGender(s string) (Gender, error) {
	switch Gender(strings.ToLower(strings.TrimSpace(s))) {
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// ParseCitySize 解析城市规模枚举，大小写不敏感。
func ParseCitySize(s string) (CitySize, error) {
	switch CitySize(strings.ToLower(strings.TrimSpace(s))) {
	case CitySmall:
		return CitySmall, nil
	case CityBig:
		return CityBig, nil
	}
	return "", fmt.Errorf("unknown city size %q", s)
}

// ParseMood 解析情绪标签，大小写不敏感。
func ParseMood(s string) (Mood, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, m := range []Mood{MoodHappy, MoodSad, MoodAngry, MoodAnxious, MoodTired, MoodRelaxed} {
		if lower == strings.ToLower(string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mood %q", s)
}
