package locales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRussianDefaults(t *testing.T) {
	b, err := New("ru")
	require.NoError(t, err)
	assert.Equal(t, "Привет!", b.T(Greeting))
	assert.Equal(t, "Помощь", b.T(Help))
	assert.Equal(t, "Старт", b.T(MenuStart))
	assert.Equal(t, "Справка", b.T(MenuHelp))
	assert.Equal(t, "⚙️ Ошибки в логе отсутствуют.", b.T(NoErrorEntries))
	assert.Equal(t, "⚙️ Инфо в логе отсутствует.", b.T(NoInfoEntries))
	assert.Equal(t, "💾 Файл лога был очищен.", b.T(LogCleared))
}

func TestTemplateData(t *testing.T) {
	b, err := New("en")
	require.NoError(t, err)
	assert.Equal(t, "New user: [Ann](tg://user?id=1)", b.Text(NewUser, map[string]any{"Mention": "[Ann](tg://user?id=1)"}))
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	b, err := New("de")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", b.T(Greeting))
	assert.Equal(t, "Missing", b.T("Missing"))
}

func TestInvalidLanguage(t *testing.T) {
	_, err := New("not a tag!")
	assert.Error(t, err)
}
