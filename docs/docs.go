// Package docs содержит swagger-описание HTTP API в формате swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/recommend": {
            "post": {
                "description": "Принимает фото одежды и возвращает ID визуально похожих товаров, ближайшие первыми",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["recommendations"],
                "summary": "Рекомендации по изображению",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Изображение (jpeg, png, gif, webp)",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "ID похожих товаров",
                        "schema": {
                            "type": "array",
                            "items": {"type": "integer"}
                        }
                    },
                    "400": {
                        "description": "Файл не передан или не является изображением",
                        "schema": {"$ref": "#/definitions/http.ErrorResponse"}
                    },
                    "500": {
                        "description": "Сервис недоступен или ошибка обработки",
                        "schema": {"$ref": "#/definitions/http.ErrorResponse"}
                    }
                }
            }
        },
        "/v1/products": {
            "get": {
                "description": "Возвращает карточки товаров по списку ID, например для отрисовки рекомендаций",
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Информация о товарах",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID через запятую",
                        "name": "ids",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Найденные товары",
                        "schema": {"$ref": "#/definitions/http.GetProductsResponse"}
                    },
                    "400": {
                        "description": "Некорректный список ID",
                        "schema": {"$ref": "#/definitions/http.ErrorResponse"}
                    },
                    "500": {
                        "description": "Внутренняя ошибка",
                        "schema": {"$ref": "#/definitions/http.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "http.GetProductsResponse": {
            "type": "object",
            "properties": {
                "not_found": {
                    "type": "array",
                    "items": {"type": "integer"}
                },
                "products": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/http.ProductResponse"}
                }
            }
        },
        "http.ProductResponse": {
            "type": "object",
            "properties": {
                "base_colour": {"type": "string"},
                "category": {"type": "string"},
                "gender": {"type": "string"},
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "price": {"type": "integer"},
                "season": {"type": "string"},
                "usage": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Visual Recommender API",
	Description:      "Рекомендации товаров по фотографии одежды.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
