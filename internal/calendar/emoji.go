package calendar

import "strings"

// emojiRule maps collection-type keywords to a display emoji. Keyword
// matching only, no API calls. Order matters: "non-burnable" contains
// "burnable", and "PET bottles" contains "bottles", so the more
// specific rules come first.
type emojiRule struct {
	keywords []string
	emoji    string
}

var emojiRules = []emojiRule{
	{
		keywords: []string{"もやさないごみ", "燃えないごみ", "燃えないゴミ", "不燃ごみ", "不燃ゴミ", "燃やせないごみ", "燃やせないゴミ",
			"non-burnable", "non burnable", "incombustible", "non-combustible"},
		emoji: "🗑️",
	},
	{
		keywords: []string{"もやすごみ", "燃えるごみ", "燃えるゴミ", "可燃ごみ", "可燃ゴミ", "燃やせるごみ", "燃やせるゴミ",
			"burnable", "combustible"},
		emoji: "🔥",
	},
	{
		keywords: []string{"プラスチック", "プラごみ", "プラゴミ", "プラ",
			"plastic", "plastics"},
		emoji: "♻️",
	},
	{
		keywords: []string{"ペットボトル",
			"pet bottle", "pet bottles"},
		emoji: "🍼",
	},
	{
		keywords: []string{"缶", "かん", "カン",
			"can", "cans", "cans & bottles", "metal"},
		emoji: "🥫",
	},
	{
		keywords: []string{"ビン", "瓶", "びん",
			"bottle", "bottles", "glass"},
		emoji: "🍶",
	},
	{
		keywords: []string{"段ボール", "ダンボール", "だんぼーる",
			"cardboard", "carton"},
		emoji: "📦",
	},
	{
		keywords: []string{"古紙", "紙類", "こうし",
			"paper", "newspaper", "waste paper", "rags", "waste paper & rags"},
		emoji: "📰",
	},
	{
		keywords: []string{"小型家電", "家電",
			"small appliance", "small appliances", "electronics"},
		emoji: "📱",
	},
	{
		keywords: []string{"粗大ごみ", "粗大ゴミ", "粗大",
			"bulky", "oversized", "large item", "large waste"},
		emoji: "🪑",
	},
	{
		keywords: []string{"資源ごみ", "資源ゴミ", "資源",
			"recyclable", "recycling", "resource"},
		emoji: "♻️",
	},
	{
		keywords: []string{"布", "衣類", "繊維",
			"cloth", "clothing", "textile", "fabric", "apparel"},
		emoji: "👕",
	},
	{
		keywords: []string{"電池", "乾電池",
			"battery", "batteries"},
		emoji: "🔋",
	},
	{
		keywords: []string{"蛍光灯", "蛍光管",
			"fluorescent", "light bulb", "bulb"},
		emoji: "💡",
	},
	{
		keywords: []string{"食品トレー", "トレー", "トレイ",
			"tray", "food tray", "styrofoam"},
		emoji: "🍱",
	},
}

// DecorateTitle prefixes a collection-type title with a matching emoji.
// Unmatched titles are returned unchanged. Cosmetic only: external keys
// are always computed from the undecorated title.
func DecorateTitle(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range emojiRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return rule.emoji + " " + title
			}
		}
	}
	return title
}
