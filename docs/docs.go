// Package docs регистрирует OpenAPI-описание JSON API шлюза для http-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/password/request": {"post": {"tags": ["Auth"], "summary": "Запросить код сброса пароля", "security": [], "responses": {"200": {"description": "OK"}, "422": {"description": "Ошибка валидации"}}}},
        "/password/reset": {"post": {"tags": ["Auth"], "summary": "Сменить пароль по коду", "security": [], "responses": {"200": {"description": "OK"}, "422": {"description": "Ошибка валидации"}}}},
        "/v1/me/plan": {"get": {"tags": ["Billing"], "summary": "Текущий тариф пользователя", "responses": {"200": {"description": "OK"}, "401": {"description": "Нет сессии"}}}},
        "/v1/plans/public": {"get": {"tags": ["Billing"], "summary": "Публичный каталог тарифов", "responses": {"200": {"description": "OK"}}}},
        "/v1/orders": {"post": {"tags": ["Billing"], "summary": "Создать заказ на тариф", "responses": {"201": {"description": "Created"}, "422": {"description": "Ошибка валидации"}}}},
        "/v1/payments/manual": {"post": {"tags": ["Billing"], "summary": "Отправить ручной платёж", "responses": {"200": {"description": "OK"}, "422": {"description": "Ошибка валидации"}}}},
        "/v1/admin/users": {
            "get": {"tags": ["Admin"], "summary": "Список пользователей", "parameters": [
                {"name": "search", "in": "query", "type": "string"},
                {"name": "status", "in": "query", "type": "string"},
                {"name": "page", "in": "query", "type": "integer"},
                {"name": "limit", "in": "query", "type": "integer"}
            ], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Admin"], "summary": "Создать пользователя", "responses": {"201": {"description": "Created"}, "422": {"description": "Ошибка валидации"}}}
        },
        "/v1/admin/users/{id}": {
            "get": {"tags": ["Admin"], "summary": "Профиль пользователя", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Не найден"}}},
            "patch": {"tags": ["Admin"], "summary": "Изменить пользователя", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/admin/users/{id}/status": {"patch": {"tags": ["Admin"], "summary": "Изменить статус аккаунта", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/v1/admin/users/{id}/reset-password": {"post": {"tags": ["Admin"], "summary": "Отправить ссылку сброса пароля", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/v1/admin/payments": {"get": {"tags": ["Admin"], "summary": "Список платежей", "parameters": [{"name": "status", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/v1/admin/payments/approve": {"post": {"tags": ["Admin"], "summary": "Подтвердить платёж", "responses": {"200": {"description": "OK"}, "422": {"description": "Ошибка валидации"}}}},
        "/v1/admin/plans": {
            "get": {"tags": ["Admin"], "summary": "Все тарифы", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Admin"], "summary": "Создать тариф", "responses": {"201": {"description": "Created"}, "422": {"description": "Ошибка валидации"}}}
        },
        "/v1/admin/plans/{slug}": {
            "put": {"tags": ["Admin"], "summary": "Изменить тариф", "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Admin"], "summary": "Удалить тариф", "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo метаданные описания API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "FinTrack Gateway API",
	Description:      "JSON API личного кабинета и административной консоли FinTrack.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
