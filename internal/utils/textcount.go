// internal/utils/textcount.go
package utils

import (
	"time"
)

// CountMeaningfulChars 统计文本中的有效字符数
//
// 有效字符指 CJK 汉字（U+4E00–U+9FA5）、ASCII 字母和数字；
// 空白、标点及其他符号一律不计。所有字数统计均以此为基准。
func CountMeaningfulChars(text string) int {
	count := 0
	for _, r := range text {
		switch {
		case r >= 0x4e00 && r <= 0x9fa5:
			count++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			count++
		case r >= '0' && r <= '9':
			count++
		}
	}
	return count
}

// DayKey 生成本地日期键，用于按自然日归档创作量
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// TodayKey 当天的日期键
func TodayKey() string {
	return DayKey(time.Now())
}
