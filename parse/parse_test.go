package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
  "recipes": [
    {
      "name": "红烧排骨",
      "type": "营养大餐",
      "cooking_time": "45分钟",
      "servings": "4人份",
      "calories": 650,
      "nutrition": {"protein": 35, "carb": 40, "fat": 25},
      "ingredients": [
        {"name": "排骨", "amount": 500, "unit": "克"}
      ],
      "steps": ["焯水", "炖煮"],
      "expiration_priority": true,
      "tips": "炖煮时间要足够长"
    },
    {
      "name": "番茄炒蛋",
      "type": "快手菜",
      "cooking_time": "15分钟",
      "servings": "2人份",
      "calories": 320,
      "nutrition": {"protein": 25, "carb": 45, "fat": 30},
      "ingredients": [
        {"name": "西红柿", "amount": 2, "unit": "个"},
        {"name": "鸡蛋", "amount": 3, "unit": "个"}
      ],
      "steps": ["打蛋", "翻炒"],
      "expiration_priority": false
    }
  ]
}`

func TestParse_CleanPayload(t *testing.T) {
	res, err := Parse(validPayload)
	require.NoError(t, err)
	require.Len(t, res.Recipes, 2)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, "红烧排骨", res.Recipes[0].Name)
	assert.True(t, res.Recipes[0].ExpirationPriority)
	assert.Equal(t, "番茄炒蛋", res.Recipes[1].Name)
}

func TestParse_ProseAndCodeFences(t *testing.T) {
	wrapped := "好的，以下是为您定制的食谱：\n```json\n" + validPayload + "\n```\n希望您喜欢！"

	res, err := Parse(wrapped)
	require.NoError(t, err)
	assert.Len(t, res.Recipes, 2)

	clean, err := Parse(validPayload)
	require.NoError(t, err)
	assert.Equal(t, clean.Recipes, res.Recipes, "wrapping must not change the decoded recipes")
}

func TestParse_RepairableDefects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "trailing comma",
			raw: `{"recipes": [{"name": "番茄炒蛋", "type": "快手菜", "cooking_time": "15分钟",
				"servings": "2人份", "calories": 320, "nutrition": {"protein": 25, "carb": 45, "fat": 30},
				"ingredients": [{"name": "鸡蛋", "amount": 3, "unit": "个"},], "steps": ["翻炒"],}]}`,
		},
		{
			name: "typographic quotes",
			raw: `{“recipes”: [{“name”: “番茄炒蛋”, “type”: “快手菜”, “cooking_time”: “15分钟”,
				“servings”: “2人份”, “calories”: 320, “nutrition”: {“protein”: 25, “carb”: 45, “fat”: 30},
				“ingredients”: [{“name”: “鸡蛋”, “amount”: 3, “unit”: “个”}], “steps”: [“翻炒”]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.raw)
			require.NoError(t, err)
			require.Len(t, res.Recipes, 1)
			assert.Equal(t, "番茄炒蛋", res.Recipes[0].Name)
		})
	}
}

func TestParse_NoJSONObject(t *testing.T) {
	_, err := Parse("抱歉，我无法生成食谱。")
	assert.ErrorIs(t, err, ErrNoJSONObject)
}

func TestParse_MissingRecipesKey(t *testing.T) {
	_, err := Parse(`{"message": "ok"}`)
	assert.ErrorIs(t, err, ErrNoRecipes)
}

func TestParse_InvalidRecipeDropped(t *testing.T) {
	raw := `{"recipes": [
		{"name": "", "type": "快手菜", "calories": 100,
		 "ingredients": [{"name": "鸡蛋", "amount": 3, "unit": "个"}], "steps": ["翻炒"]},
		{"name": "番茄炒蛋", "type": "快手菜", "cooking_time": "15分钟", "servings": "2人份",
		 "calories": 320, "nutrition": {"protein": 25, "carb": 45, "fat": 30},
		 "ingredients": [{"name": "鸡蛋", "amount": 3, "unit": "个"}], "steps": ["翻炒"]}
	]}`

	res, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, res.Recipes, 1)
	assert.Equal(t, "番茄炒蛋", res.Recipes[0].Name)
	require.Len(t, res.Dropped, 1)
	assert.Contains(t, res.Dropped[0].Reason, "missing name")
}

func TestParse_AllRecipesInvalid(t *testing.T) {
	raw := `{"recipes": [{"name": "", "type": "快手菜"}, {"name": "x", "type": "夜宵"}]}`

	_, err := Parse(raw)
	assert.ErrorIs(t, err, ErrNoRecipes)
}

func TestParse_SyntaxErrorCarriesContext(t *testing.T) {
	// A type mismatch survives repair and fails structurally.
	_, err := Parse(`{"recipes": [{"name": 12345}]}`)
	require.Error(t, err)

	var syn *SyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Greater(t, syn.Offset, int64(0))
	assert.NotEmpty(t, syn.Context)
	assert.Contains(t, syn.Context, "12345")
}
