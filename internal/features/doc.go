// Package features turns the merged geo table into model inputs: a numeric
// feature matrix with one-hot encoded text columns, the target column and
// provider ids, split into training and test rows. It also ranks the
// feature importances reported back by the external trainer.
package features
