// Package curriculum содержит учебный контент Eco Explorer:
// модули для чтения, их викторины и мини-игры.
//
// Контент статичен и не зависит от профиля ученика. Пакет отвечает
// только за "что показать" и "как оценить ответы"; начисление очков
// и наград делает пакет learner.
package curriculum

import (
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MODULE IDS
// ══════════════════════════════════════════════════════════════════════════════

// Идентификаторы учебных модулей. На них ссылаются правила значков.
const (
	ModuleClimate     = "climate"
	ModuleRecycling   = "recycling"
	ModuleWaterEnergy = "water-energy"
	ModuleGreenHabits = "green-habits"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Section - один экран текста внутри модуля.
type Section struct {
	Title string
	Text  string
	Emoji string
}

// Question - вопрос викторины модуля.
type Question struct {
	ID           string
	Text         string
	Options      []string
	CorrectIndex int
	Explanation  string
}

// Module - учебный модуль: несколько секций текста и викторина в конце.
type Module struct {
	ID          string
	Title       string
	Emoji       string
	Description string
	Sections    []Section
	Quiz        []Question
}

// QuestionCount возвращает количество вопросов викторины.
func (m Module) QuestionCount() int {
	return len(m.Quiz)
}

// ProgressPercent возвращает прогресс по модулю для дашборда:
// 100 для пройденного модуля, иначе лучший результат в процентах.
func (m Module) ProgressPercent(bestScore int, completed bool) int {
	if completed {
		return 100
	}
	if bestScore <= 0 || m.QuestionCount() == 0 {
		return 0
	}
	p := shared.RoundPercentage(shared.Percentage(bestScore, m.QuestionCount()))
	if p > 100 {
		return 100
	}
	return p
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog - неизменяемый набор модулей в порядке показа.
type Catalog struct {
	modules []Module
	index   map[string]int
}

// NewCatalog создаёт каталог из списка модулей.
func NewCatalog(modules []Module) *Catalog {
	c := &Catalog{
		modules: make([]Module, len(modules)),
		index:   make(map[string]int, len(modules)),
	}
	copy(c.modules, modules)
	for i, m := range c.modules {
		c.index[m.ID] = i
	}
	return c
}

// DefaultCatalog возвращает каталог из четырёх стандартных модулей.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Modules возвращает копию списка модулей.
func (c *Catalog) Modules() []Module {
	out := make([]Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// Module возвращает модуль по ID или ErrUnknownModule.
func (c *Catalog) Module(id string) (Module, error) {
	i, ok := c.index[id]
	if !ok {
		return Module{}, shared.ErrUnknownModule
	}
	return c.modules[i], nil
}

// Has проверяет, существует ли модуль.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// IDs возвращает идентификаторы модулей в порядке каталога.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.modules))
	for i, m := range c.modules {
		ids[i] = m.ID
	}
	return ids
}

var defaultCatalog = NewCatalog([]Module{
	{
		ID:          ModuleClimate,
		Title:       "Climate Change Basics",
		Emoji:       "🌍",
		Description: "Learn what climate change is and why it matters",
		Sections: []Section{
			{Title: "What is Climate?", Emoji: "🌤️", Text: "Climate is the weather pattern of a place over a long time. It includes things like temperature, rain, and wind. Earth's climate keeps all living things healthy!"},
			{Title: "The Greenhouse Effect", Emoji: "🏠", Text: "Imagine wearing a thick blanket on a warm day - you'd get too hot! Gases in our air work like a blanket around Earth. Some of these gases trap heat and make our planet warmer."},
			{Title: "Why It's Changing", Emoji: "🚗", Text: "When we burn fuel for cars, planes, and factories, we add more \"blanket gases\" to the air. This makes Earth warmer than it should be. That's climate change!"},
			{Title: "What Can We Do?", Emoji: "🌱", Text: "We can help by using less energy, planting trees, and choosing eco-friendly options. Every small action adds up to make a big difference!"},
		},
		Quiz: []Question{
			{ID: "c1", Text: "What does climate mean?", Options: []string{"Weather today", "Weather patterns over a long time", "Only temperature", "Only rain"}, CorrectIndex: 1, Explanation: "Climate is the weather pattern of a place over many years, not just one day!"},
			{ID: "c2", Text: "What do greenhouse gases do?", Options: []string{"Cool the Earth", "Trap heat like a blanket", "Make it rain", "Stop the wind"}, CorrectIndex: 1, Explanation: "Greenhouse gases trap heat around Earth, just like a blanket keeps you warm!"},
			{ID: "c3", Text: "What causes more greenhouse gases?", Options: []string{"Planting trees", "Burning fuel", "Swimming", "Sleeping"}, CorrectIndex: 1, Explanation: "Burning fuel in cars and factories releases greenhouse gases into the air."},
			{ID: "c4", Text: "How can kids help the climate?", Options: []string{"Use more electricity", "Plant trees and save energy", "Leave lights on", "Waste water"}, CorrectIndex: 1, Explanation: "Planting trees and saving energy are great ways kids can help our planet!"},
		},
	},
	{
		ID:          ModuleRecycling,
		Title:       "Recycling & Waste",
		Emoji:       "♻️",
		Description: "Discover how to reduce, reuse, and recycle",
		Sections: []Section{
			{Title: "The Three Rs", Emoji: "3️⃣", Text: "Reduce, Reuse, Recycle! These are the three magic words to help our planet. First, try to use less. Then, use things again. Finally, recycle what's left!"},
			{Title: "What Can Be Recycled?", Emoji: "📦", Text: "Paper, cardboard, plastic bottles, glass jars, and metal cans can all be recycled! Look for the recycling symbol ♻️ on items to know they can be recycled."},
			{Title: "Why Recycling Matters", Emoji: "⚡", Text: "When we recycle, we turn old things into new things! This saves trees, uses less energy, and keeps trash out of nature. One recycled can saves enough energy to run a TV for 3 hours!"},
			{Title: "Be a Recycling Hero", Emoji: "🦸", Text: "Sort your trash at home! Put paper with paper, plastic with plastic. Wash containers before recycling. You're helping save the planet with every item you recycle!"},
		},
		Quiz: []Question{
			{ID: "r1", Text: "What are the Three Rs?", Options: []string{"Run, Rest, Repeat", "Reduce, Reuse, Recycle", "Read, Write, Run", "Red, Rose, Rain"}, CorrectIndex: 1, Explanation: "Reduce, Reuse, Recycle are the three Rs that help protect our planet!"},
			{ID: "r2", Text: "Which item can be recycled?", Options: []string{"Food waste", "Plastic bottles", "Dirty diapers", "Broken glass"}, CorrectIndex: 1, Explanation: "Plastic bottles can be recycled! Look for the ♻️ symbol."},
			{ID: "r3", Text: "What should you do before recycling a container?", Options: []string{"Paint it", "Wash it", "Break it", "Hide it"}, CorrectIndex: 1, Explanation: "Washing containers before recycling helps them get recycled properly!"},
			{ID: "r4", Text: "Why is recycling good for trees?", Options: []string{"It feeds them", "We use less paper so fewer trees are cut", "It waters them", "It gives them shade"}, CorrectIndex: 1, Explanation: "When we recycle paper, we don't need to cut down as many trees to make new paper!"},
		},
	},
	{
		ID:          ModuleWaterEnergy,
		Title:       "Water & Energy Saving",
		Emoji:       "💧",
		Description: "Learn to save water and energy every day",
		Sections: []Section{
			{Title: "Precious Water", Emoji: "💧", Text: "Only 1% of Earth's water is fresh and available for us to use! That's why saving water is super important. Every drop counts!"},
			{Title: "Water-Saving Tips", Emoji: "🚿", Text: "Turn off the tap while brushing teeth. Take shorter showers. Fix leaky faucets. Use a watering can for plants instead of a hose. These small changes save lots of water!"},
			{Title: "Energy All Around", Emoji: "⚡", Text: "Energy powers our lights, computers, and TVs. Most energy comes from burning things like coal, which isn't good for Earth. Saving energy helps the planet!"},
			{Title: "Be an Energy Saver", Emoji: "💡", Text: "Turn off lights when leaving a room. Unplug devices you're not using. Open curtains for sunlight instead of turning on lights. You can be an energy-saving superhero!"},
		},
		Quiz: []Question{
			{ID: "w1", Text: "How much of Earth's water can we use?", Options: []string{"All of it", "Half of it", "Only about 1%", "99%"}, CorrectIndex: 2, Explanation: "Only about 1% of Earth's water is fresh water we can use!"},
			{ID: "w2", Text: "When should you turn off the tap?", Options: []string{"Never", "While brushing teeth", "While washing hands", "While watering plants"}, CorrectIndex: 1, Explanation: "Turning off the tap while brushing teeth saves a lot of water!"},
			{ID: "w3", Text: "What's a good way to save energy?", Options: []string{"Leave all lights on", "Turn off lights when leaving a room", "Keep the TV on all day", "Never use sunlight"}, CorrectIndex: 1, Explanation: "Turning off lights when you leave a room is a great way to save energy!"},
			{ID: "w4", Text: "What can you use instead of turning on lights during the day?", Options: []string{"A flashlight", "Sunlight through windows", "Night vision goggles", "Candles"}, CorrectIndex: 1, Explanation: "Using natural sunlight during the day saves energy and is great for you!"},
		},
	},
	{
		ID:          ModuleGreenHabits,
		Title:       "Green Habits at Home",
		Emoji:       "🌱",
		Description: "Simple eco-friendly habits for everyday life",
		Sections: []Section{
			{Title: "Green Living", Emoji: "🏡", Text: "Living green means making choices that are good for the Earth. It's about small daily habits that add up to big changes! Anyone can live green!"},
			{Title: "Eco-Friendly Eating", Emoji: "🥗", Text: "Eat more fruits and vegetables! Try to waste less food. Bring your own bag to the store. Choose foods with less packaging. Your tummy and Earth will thank you!"},
			{Title: "Green Transportation", Emoji: "🚲", Text: "Walk, bike, or take the bus when you can. Cars produce gases that warm up Earth. Plus, walking and biking are fun exercise!"},
			{Title: "Nature Connection", Emoji: "🦋", Text: "Spend time in nature! Plant flowers or vegetables. Create a home for birds or butterflies. The more we love nature, the more we want to protect it!"},
		},
		Quiz: []Question{
			{ID: "g1", Text: "What does \"living green\" mean?", Options: []string{"Painting everything green", "Making eco-friendly choices", "Only eating vegetables", "Living in a forest"}, CorrectIndex: 1, Explanation: "Living green means making choices every day that are good for our planet!"},
			{ID: "g2", Text: "Which is an eco-friendly eating habit?", Options: []string{"Throwing away food", "Using lots of plastic bags", "Eating more fruits and vegetables", "Wasting food"}, CorrectIndex: 2, Explanation: "Eating more fruits and vegetables is great for you and the planet!"},
			{ID: "g3", Text: "What's a green way to get to school?", Options: []string{"Having parents drive you alone", "Walking or biking", "Taking a helicopter", "Staying home"}, CorrectIndex: 1, Explanation: "Walking or biking doesn't use any fuel and is great exercise!"},
			{ID: "g4", Text: "Why should we spend time in nature?", Options: []string{"It's boring", "We learn to love and protect it", "There's nothing else to do", "Nature doesn't need us"}, CorrectIndex: 1, Explanation: "When we spend time in nature, we learn to love it and want to protect it!"},
		},
	},
})
