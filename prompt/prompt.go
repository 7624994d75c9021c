// Package prompt renders an inventory snapshot and recent meal history into
// the instruction block sent to the model. Composition is pure: identical
// inputs produce byte-identical output, and nothing here reads the clock.
package prompt

import (
	"fmt"
	"strings"

	"pantrychef"
)

// urgencyMark flags ingredients with three or fewer days of shelf life left.
const urgencyMark = "❗️"

// Compose builds the full recommendation prompt: grouped inventory, recent
// meals, the bilingual requirements section, and the literal JSON output
// contract with a worked example.
func Compose(ingredients []pantrychef.IngredientSnapshot, history []pantrychef.HistoryEntry) string {
	var b strings.Builder

	b.WriteString(`# 中英双语指令模板
[ZH] 你是一个专业营养师，请根据以下信息生成定制化食谱：

1. 当前库存食材：`)

	// Group by category in first-appearance order. Iterating a map here
	// would make output ordering nondeterministic.
	var categories []string
	grouped := make(map[string][]pantrychef.IngredientSnapshot)
	for _, ing := range ingredients {
		if _, ok := grouped[ing.Category]; !ok {
			categories = append(categories, ing.Category)
		}
		grouped[ing.Category] = append(grouped[ing.Category], ing)
	}

	for _, category := range categories {
		b.WriteString("\n" + category + "：")
		items := make([]string, 0, len(grouped[category]))
		for _, ing := range grouped[category] {
			items = append(items, formatIngredient(ing))
		}
		b.WriteString(strings.Join(items, ", "))
	}

	b.WriteString("\n\n2. 用户近期饮食：\n")
	for _, h := range history {
		fmt.Fprintf(&b, "  • %s: %s\n", h.Date, h.Meal)
	}

	b.WriteString(`
3. 特殊要求：
   - 优先消耗临近过期食材（剩余保质期<3天的标记为` + urgencyMark + `）
   - 营养均衡（蛋白质占比20-35%）
   - 避免重复最近6天的食谱
   - 每种类型提供2道食谱选择
   - 需要包含以下三种类型：
     a. 快手菜（烹饪时间≤20分钟）
     b. 营养大餐（营养均衡，适合2-4人）
     c. 省时锅（一锅出，适合3-6人）

[EN] As a professional nutritionist, generate recipes with:
1. Current ingredients: ` + joinNames(ingredients) + `
2. Last meals: ` + joinMeals(history) + `
3. Requirements:
   - Prioritize ingredients expiring in <3 days (marked with ` + urgencyMark + `)
   - Balanced nutrition (protein 20-35%)
   - No repetition in last meals
   - Provide 2 recipes for each type
   - Include three types:
     a. Quick meals (cooking time ≤20 mins)
     b. Nutritious meals (balanced, serves 2-4)
     c. One-pot meals (serves 3-6)

`)
	b.WriteString(outputContract)

	return b.String()
}

// formatIngredient renders one inventory line: name, urgency mark, days
// left (or no-expiry), quantity and unit.
func formatIngredient(ing pantrychef.IngredientSnapshot) string {
	mark := ""
	if ing.NearExpiry() {
		mark = urgencyMark
	}
	expiry := "无保质期"
	if ing.HasExpiry {
		expiry = fmt.Sprintf("%d天", ing.DaysLeft)
	}
	return fmt.Sprintf("%s%s(%s)-%s%s", ing.Name, mark, expiry, formatQuantity(ing.Quantity), ing.Unit)
}

// formatQuantity drops a trailing .0 so "500克" prints without a decimal.
func formatQuantity(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%g", q)
}

func joinNames(ingredients []pantrychef.IngredientSnapshot) string {
	names := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		names = append(names, ing.Name)
	}
	return strings.Join(names, ", ")
}

func joinMeals(history []pantrychef.HistoryEntry) string {
	meals := make([]string, 0, len(history))
	for _, h := range history {
		meals = append(meals, h.Meal)
	}
	return strings.Join(meals, ", ")
}

// outputContract is embedded verbatim so the model can pattern-match the
// expected shape instead of inventing one.
const outputContract = `# 输出格式要求
请严格按照以下 JSON 格式输出：
{
  "recipes": [
    {
      "name": "食谱名称",
      "type": "快手菜/营养大餐/省时锅",
      "cooking_time": "20分钟",
      "servings": "4人份",
      "calories": 500,
      "nutrition": {
        "protein": 30,
        "carb": 45,
        "fat": 20
      },
      "ingredients": [
        {
          "name": "食材名称",
          "amount": 2,
          "unit": "单位"
        }
      ],
      "steps": ["步骤1", "步骤2"],
      "expiration_priority": true,
      "tips": "可选的烹饪建议和技巧"
    }
  ]
}

数据要求：
- 所有必填字段不能为空，数值字段不能为负数
- 所有食材必须标注具体数量，禁止使用"适量"、"少许"等模糊词
- 调味料需标注具体克数或毫升数

完整示例：
{
  "recipes": [
    {
      "name": "红烧排骨",
      "type": "营养大餐",
      "cooking_time": "45分钟",
      "servings": "4人份",
      "calories": 650,
      "nutrition": {
        "protein": 35,
        "carb": 40,
        "fat": 25
      },
      "ingredients": [
        {"name": "排骨", "amount": 500, "unit": "克"},
        {"name": "生抽", "amount": 15, "unit": "毫升"},
        {"name": "老抽", "amount": 5, "unit": "毫升"},
        {"name": "料酒", "amount": 10, "unit": "毫升"},
        {"name": "盐", "amount": 2, "unit": "克"}
      ],
      "steps": [
        "排骨切段，冷水下锅焯烫去血水",
        "锅中放油，爆香姜片和葱段",
        "加入排骨翻炒上色",
        "加入生抽、老抽、料酒调味",
        "加入适量热水，大火烧开后转小火炖煮30分钟",
        "调入盐和糖，收汁即可"
      ],
      "expiration_priority": true,
      "tips": "1. 焯水时加入几片姜片去腥 2. 炖煮时间要足够长，确保排骨软烂"
    }
  ]
}`
