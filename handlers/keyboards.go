package handlers

import (
	"blogger_bot/database"

	"github.com/go-telegram/bot/models"
)

func roleKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "🧑‍💼 Продавец", CallbackData: callbackData(cbRole, database.RoleSeller)},
			{Text: "🔍 Покупатель", CallbackData: callbackData(cbRole, database.RoleBuyer)},
		}},
	}
}

func genderKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "Любая", CallbackData: callbackData(cbGender, database.GenderAny)},
			{Text: "♀ Женская", CallbackData: callbackData(cbGender, database.GenderFemale)},
			{Text: "♂ Мужская", CallbackData: callbackData(cbGender, database.GenderMale)},
		}},
	}
}

func resultKeyboard(bloggerID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "🤝 Связаться", CallbackData: callbackData(cbContact, bloggerID)},
			{Text: "⚠️ Пожаловаться", CallbackData: callbackData(cbComplain, bloggerID)},
		}},
	}
}

func nextPageKeyboard(offset int) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "➡️ Ещё", CallbackData: callbackData(cbNext, offset)},
		}},
	}
}

func deleteKeyboard(bloggerID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "🗑 Удалить", CallbackData: callbackData(cbDelete, bloggerID)},
		}},
	}
}

func payKeyboard(link string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "💳 Оплатить", URL: link},
		}},
	}
}

func subscribeKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "💳 Оформить подписку", CallbackData: cbPay},
		}},
	}
}
